// Package compiler orchestrates a run: it closes the include graph
// over the entry script, hands every compile-ready unit and library
// reference to the compiler service, remaps failure diagnostics onto
// original file locations, and invokes the located entry procedure.
package compiler

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"goscript/config"
	"goscript/entry"
	"goscript/resolver"
)

// ErrCompileFailed reports that the compiler service returned
// diagnostics; they have already been written to the error stream.
var ErrCompileFailed = errors.New("compilation failed")

// Compiler drives one compilation graph from entry file to invoked
// program and discards it afterward.
type Compiler struct {
	// Service performs the actual compilation. Nil selects the Go
	// toolchain service.
	Service Service
	// Config carries optional project settings (default import refs,
	// temp retention). Nil means zero config.
	Config *config.Config
	// Stderr receives diagnostics and fatal messages. Nil means
	// os.Stderr.
	Stderr io.Writer
}

func (c *Compiler) service() Service {
	if c.Service != nil {
		return c.Service
	}
	return NewGoCompiler()
}

func (c *Compiler) stderr() io.Writer {
	if c.Stderr != nil {
		return c.Stderr
	}
	return os.Stderr
}

func (c *Compiler) keepTemp() bool {
	return c.Config != nil && c.Config.Build.KeepTemp
}

// compile resolves the include closure and runs the service once. The
// caller owns releasing the returned set; it is non-nil even on error
// so temporaries created before a failure still get cleaned up.
func (c *Compiler) compile(filename string) (*resolver.Set, Program, error) {
	set, err := resolver.ResolveAll(filename)
	if err != nil {
		return set, nil, err
	}

	imports := set.Imports()
	if c.Config != nil {
		imports = append(imports, c.Config.Build.Imports...)
	}

	prog, diags, err := c.service().Compile(set.CompilePaths(), imports)
	if err != nil {
		return set, nil, fmt.Errorf("compiler service: %w", err)
	}
	if len(diags) > 0 {
		reportDiagnostics(c.stderr(), set.Units(), diags)
		return set, nil, ErrCompileFailed
	}
	return set, prog, nil
}

// release cleans up the set's temporaries unless config keeps them.
func (c *Compiler) release(set *resolver.Set) {
	if set == nil || c.keepTemp() {
		return
	}
	set.Release()
}

// Run compiles filename and invokes its entry procedure with args.
// entrySpec is the already-validated explicit Type.Method selector, or
// the zero Candidate for auto-discovery. Temporary files are released
// on every path.
func (c *Compiler) Run(filename string, entrySpec entry.Candidate, args []string) error {
	set, prog, err := c.compile(filename)
	defer c.release(set)
	if err != nil {
		return err
	}

	cand, err := entry.Locate(prog, entrySpec)
	if err != nil {
		closeProgram(prog)
		return err
	}
	return prog.Invoke(cand, args)
}

// closeProgram releases a program handle's build directory when the
// run stops before invocation.
func closeProgram(prog Program) {
	if cl, ok := prog.(io.Closer); ok {
		cl.Close()
	}
}

// Build compiles filename to a native binary at output (a name derived
// from the script when empty) without running it.
func (c *Compiler) Build(filename, output string, entrySpec entry.Candidate) error {
	set, prog, err := c.compile(filename)
	defer c.release(set)
	if err != nil {
		return err
	}

	cand, err := entry.Locate(prog, entrySpec)
	if err != nil {
		closeProgram(prog)
		return err
	}

	builder, ok := prog.(ProgramBuilder)
	if !ok {
		closeProgram(prog)
		return fmt.Errorf("compiler service does not support building binaries")
	}
	if output == "" {
		base := filepath.Base(filename)
		output = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return builder.Build(cand, output)
}

// ProgramBuilder is implemented by program handles that can link a
// standalone binary for a chosen entry candidate.
type ProgramBuilder interface {
	Build(c entry.Candidate, output string) error
}

// Manifest describes the resolved compilation without performing it:
// every unit with its compile-ready path, offset, includes and
// imports, plus the flattened reference list. Consumed by the emit
// command.
type Manifest struct {
	Units   []ManifestUnit
	Imports []string
}

// ManifestUnit is one resolved source unit in the manifest.
type ManifestUnit struct {
	Path        string
	CompilePath string
	Offset      int
	Rewritten   bool
	Includes    []string
	Imports     []string
}

// Emit resolves filename's include closure and returns the manifest.
// Temporaries created during scanning are released before returning.
func (c *Compiler) Emit(filename string) (*Manifest, error) {
	set, err := resolver.ResolveAll(filename)
	if set != nil {
		defer c.release(set)
	}
	if err != nil {
		return nil, err
	}

	m := &Manifest{Imports: set.Imports()}
	if c.Config != nil {
		m.Imports = append(m.Imports, c.Config.Build.Imports...)
	}
	for _, u := range set.Units() {
		m.Units = append(m.Units, ManifestUnit{
			Path:        u.Path,
			CompilePath: u.CompilePath,
			Offset:      u.Offset,
			Rewritten:   u.Rewritten(),
			Includes:    u.Includes,
			Imports:     u.Imports,
		})
	}
	return m, nil
}
