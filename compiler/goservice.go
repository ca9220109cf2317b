package compiler

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"goscript/entry"
)

// GoCompiler is the production compiler service: it assembles the
// compile-ready files into a temporary Go module, builds them with the
// Go toolchain, and translates toolchain output back into diagnostics
// against the compile-ready paths it was handed.
type GoCompiler struct{}

// NewGoCompiler returns the toolchain-backed service.
func NewGoCompiler() *GoCompiler {
	return &GoCompiler{}
}

const (
	progModule = "goscript_program"
	shimFile   = "goscript_main.go"
	binName    = "goscript_bin"
)

// Compile copies every compile-ready file into a fresh module
// directory, parses them for the entry locator's reflective view,
// synthesizes go.mod from the import references, and runs a
// validation build with a stub main. Diagnostics come back located
// against the compile-ready paths.
//
// Import references are consumed three ways: a local directory
// carrying a go.mod becomes a require plus replace pair; a
// path@version reference becomes a version pin; a bare module path is
// left to `go mod tidy`, which resolves whatever the sources import.
func (g *GoCompiler) Compile(paths []string, imports []string) (Program, []Diagnostic, error) {
	dir, err := os.MkdirTemp("", "goscript-build-*")
	if err != nil {
		return nil, nil, fmt.Errorf("creating build dir: %w", err)
	}
	ok := false
	defer func() {
		if !ok {
			os.RemoveAll(dir)
		}
	}()

	// Build-file base name → compile-ready path, for mapping
	// toolchain positions back.
	names := make(map[string]string, len(paths))
	for i, p := range paths {
		base := fmt.Sprintf("unit%03d.go", i)
		src, err := os.ReadFile(p)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if err := os.WriteFile(filepath.Join(dir, base), src, 0644); err != nil {
			return nil, nil, fmt.Errorf("copying %s: %w", p, err)
		}
		names[base] = p
	}

	prog := &goProgram{dir: dir, types: map[string][]string{}}
	var diags []Diagnostic

	fset := token.NewFileSet()
	for i := range paths {
		base := fmt.Sprintf("unit%03d.go", i)
		f, err := parser.ParseFile(fset, filepath.Join(dir, base), nil, parser.SkipObjectResolution)
		if err != nil {
			diags = append(diags, parseErrDiagnostics(err, names)...)
			continue
		}
		diags = append(diags, prog.inspect(fset, f, names[base])...)
	}
	if len(diags) > 0 {
		return nil, diags, nil
	}

	if err := writeGoMod(dir, imports); err != nil {
		return nil, nil, err
	}
	stub := "package main\n\nfunc main() {}\n"
	if err := os.WriteFile(filepath.Join(dir, shimFile), []byte(stub), 0644); err != nil {
		return nil, nil, fmt.Errorf("writing entry stub: %w", err)
	}

	if out, err := runGo(dir, "mod", "tidy"); err != nil {
		return nil, nil, fmt.Errorf("resolving imports: %v\n%s", err, out)
	}
	out, err := runGo(dir, "build", "-o", binName, ".")
	if err != nil {
		if d := parseBuildOutput(out, names); len(d) > 0 {
			return nil, d, nil
		}
		return nil, nil, fmt.Errorf("go build: %v\n%s", err, out)
	}

	ok = true
	return prog, nil, nil
}

// runGo executes a go subcommand in dir and returns its combined
// output.
func runGo(dir string, args ...string) (string, error) {
	cmd := exec.Command("go", args...)
	cmd.Dir = dir
	cmd.Env = appendGoNoSumCheck(os.Environ())
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// appendGoNoSumCheck adds GONOSUMCHECK=* to the environment if not
// already set, allowing temporary build directories to resolve module
// dependencies without a pre-populated go.sum.
func appendGoNoSumCheck(env []string) []string {
	for _, e := range env {
		if strings.HasPrefix(e, "GONOSUMCHECK=") {
			return env
		}
	}
	return append(env, "GONOSUMCHECK=*")
}

// writeGoMod synthesizes the build module's go.mod from the import
// references. Duplicate references across units are tolerated.
func writeGoMod(dir string, imports []string) error {
	var requires, replaces []string
	seen := make(map[string]bool)
	for _, ref := range imports {
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true

		if info, err := os.Stat(ref); err == nil && info.IsDir() {
			modPath, err := modulePathOf(ref)
			if err != nil {
				return fmt.Errorf("import %s: %w", ref, err)
			}
			abs, err := filepath.Abs(ref)
			if err != nil {
				return fmt.Errorf("import %s: %w", ref, err)
			}
			requires = append(requires, fmt.Sprintf("require %s v0.0.0", modPath))
			replaces = append(replaces, fmt.Sprintf("replace %s => %s", modPath, abs))
			continue
		}
		if mod, version, found := strings.Cut(ref, "@"); found {
			requires = append(requires, fmt.Sprintf("require %s %s", mod, version))
			continue
		}
		// Bare module path: `go mod tidy` resolves it from the
		// sources' own import statements.
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "module %s\n\ngo 1.25\n", progModule)
	for _, r := range requires {
		sb.WriteString("\n" + r)
	}
	for _, r := range replaces {
		sb.WriteString("\n" + r)
	}
	sb.WriteString("\n")
	return os.WriteFile(filepath.Join(dir, "go.mod"), []byte(sb.String()), 0644)
}

// modulePathOf reads the module path from dir's go.mod.
func modulePathOf(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("not a module directory (no go.mod)")
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if rest, found := strings.CutPrefix(line, "module "); found {
			return strings.TrimSpace(rest), nil
		}
	}
	return "", fmt.Errorf("no module line in go.mod")
}

// parseErrDiagnostics converts go/parser errors (a scanner.ErrorList
// when parsing got far enough) into diagnostics against compile-ready
// paths.
func parseErrDiagnostics(err error, names map[string]string) []Diagnostic {
	if el, ok := err.(scanner.ErrorList); ok {
		out := make([]Diagnostic, 0, len(el))
		for _, e := range el {
			out = append(out, Diagnostic{
				Path:    mapBuildPath(e.Pos.Filename, names),
				Line:    e.Pos.Line,
				Col:     e.Pos.Column,
				Message: e.Msg,
			})
		}
		return out
	}
	return []Diagnostic{{Message: err.Error(), Line: 1, Col: 1}}
}

// mapBuildPath translates a build-dir file reference back to the
// compile-ready path the caller knows.
func mapBuildPath(path string, names map[string]string) string {
	if orig, ok := names[filepath.Base(path)]; ok {
		return orig
	}
	return path
}

// buildLineRe matches toolchain diagnostics: file:line[:col]: message.
var buildLineRe = regexp.MustCompile(`^(.+\.go):(\d+)(?::(\d+))?: (.*)$`)

// parseBuildOutput extracts diagnostics from go build output. Package
// header lines ("# goscript_program") and indented continuations are
// folded away; continuations extend the previous diagnostic's message.
func parseBuildOutput(out string, names map[string]string) []Diagnostic {
	var diags []Diagnostic
	for _, line := range strings.Split(out, "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, " ") {
			if n := len(diags); n > 0 {
				diags[n-1].Message += "; " + strings.TrimSpace(line)
			}
			continue
		}
		m := buildLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ln, _ := strconv.Atoi(m[2])
		col := 1
		if m[3] != "" {
			col, _ = strconv.Atoi(m[3])
		}
		diags = append(diags, Diagnostic{
			Path:    mapBuildPath(strings.TrimPrefix(m[1], "./"), names),
			Line:    ln,
			Col:     col,
			Message: m[4],
		})
	}
	return diags
}

// goProgram is the compiled-program handle: the build module directory
// plus the reflective tables the entry locator searches.
type goProgram struct {
	dir   string
	types map[string][]string // declared type → own entry-shaped methods
	order []string            // type declaration order
}

// inspect records f's declared types and eligible methods. It also
// rejects a script-declared func main, since the generated shim owns
// the program's main.
func (p *goProgram) inspect(fset *token.FileSet, f *ast.File, origPath string) []Diagnostic {
	var diags []Diagnostic
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				if _, exists := p.types[ts.Name.Name]; !exists {
					p.types[ts.Name.Name] = nil
					p.order = append(p.order, ts.Name.Name)
				}
			}
		case *ast.FuncDecl:
			if d.Recv == nil {
				if d.Name.Name == "main" {
					pos := fset.Position(d.Pos())
					diags = append(diags, Diagnostic{
						Path:    origPath,
						Line:    pos.Line,
						Col:     pos.Column,
						Message: "func main is reserved; declare an entry method on a type",
					})
				}
				continue
			}
			typ, ok := receiverType(d.Recv)
			if !ok || !entryShaped(d.Type) {
				continue
			}
			if _, exists := p.types[typ]; !exists {
				p.order = append(p.order, typ)
			}
			p.types[typ] = append(p.types[typ], d.Name.Name)
		}
	}
	return diags
}

// receiverType returns the base type name of a method receiver.
func receiverType(recv *ast.FieldList) (string, bool) {
	if len(recv.List) != 1 {
		return "", false
	}
	t := recv.List[0].Type
	if star, ok := t.(*ast.StarExpr); ok {
		t = star.X
	}
	if id, ok := t.(*ast.Ident); ok {
		return id.Name, true
	}
	return "", false
}

// entryShaped reports whether a signature takes exactly one []string
// parameter. Results are ignored at invocation, so any are allowed.
func entryShaped(ft *ast.FuncType) bool {
	if ft.Params == nil || len(ft.Params.List) != 1 {
		return false
	}
	field := ft.Params.List[0]
	if len(field.Names) > 1 {
		return false
	}
	arr, ok := field.Type.(*ast.ArrayType)
	if !ok || arr.Len != nil {
		return false
	}
	elem, ok := arr.Elt.(*ast.Ident)
	return ok && elem.Name == "string"
}

// TypeNames lists declared types in declaration order.
func (p *goProgram) TypeNames() []string {
	return append([]string(nil), p.order...)
}

// Methods lists a type's own entry-shaped method names. Methods
// promoted through embedding are never recorded, matching the
// own-members-only search rule.
func (p *goProgram) Methods(typeName string) []string {
	return append([]string(nil), p.types[typeName]...)
}

// Close removes the build module directory.
func (p *goProgram) Close() error {
	return os.RemoveAll(p.dir)
}

// writeShim replaces the entry stub with a main that calls the chosen
// candidate.
func (p *goProgram) writeShim(c entry.Candidate) error {
	shim := fmt.Sprintf("package main\n\nimport \"os\"\n\nfunc main() {\n\tnew(%s).%s(os.Args[1:])\n}\n", c.Type, c.Method)
	return os.WriteFile(filepath.Join(p.dir, shimFile), []byte(shim), 0644)
}

// Invoke links the program with the real entry shim and executes it,
// passing args and inheriting the standard streams. A nonzero exit of
// the script comes back as *ExitError for the top-level dispatcher.
func (p *goProgram) Invoke(c entry.Candidate, args []string) error {
	defer p.Close()
	if err := p.writeShim(c); err != nil {
		return err
	}
	if out, err := runGo(p.dir, "build", "-o", binName, "."); err != nil {
		return fmt.Errorf("linking entry %s: %v\n%s", c, err, out)
	}

	cmd := exec.Command(filepath.Join(p.dir, binName), args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return &ExitError{Code: exitErr.ExitCode()}
		}
		return err
	}
	return nil
}

// Build links a standalone binary for the chosen candidate at output.
func (p *goProgram) Build(c entry.Candidate, output string) error {
	defer p.Close()
	if err := p.writeShim(c); err != nil {
		return err
	}
	absOutput, err := filepath.Abs(output)
	if err != nil {
		return fmt.Errorf("resolving output path: %w", err)
	}
	if out, err := runGo(p.dir, "build", "-ldflags=-s -w", "-o", absOutput, "."); err != nil {
		return fmt.Errorf("go build failed: %v\n%s", err, out)
	}
	return nil
}
