package compiler

import (
	"fmt"

	"goscript/entry"
)

// Diagnostic is one compiler-reported problem, located against the
// compile-ready path the service actually consumed. Line and Col are
// 1-based; Code is the service's own error code and may be empty (the
// Go toolchain emits none).
type Diagnostic struct {
	Path    string
	Line    int
	Col     int
	Code    string
	Message string
}

// Program is a handle to a successfully compiled script. It exposes
// the reflective view the entry locator searches plus the invocation
// of the chosen candidate with the script's trailing arguments.
type Program interface {
	entry.Program

	// Invoke runs the program through the given entry candidate. A
	// nonzero exit of the script surfaces as *ExitError; the script's
	// own output goes straight to the inherited streams.
	Invoke(c entry.Candidate, args []string) error
}

// Service compiles a set of compile-ready source paths plus external
// library references into a runnable program. A non-empty diagnostics
// slice means compilation failed; err reports infrastructure failures
// (the service itself could not run).
type Service interface {
	Compile(paths []string, imports []string) (Program, []Diagnostic, error)
}

// ExitError carries a script's own exit status up to the top-level
// dispatcher, which performs the single process exit.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("script exited with status %d", e.Code)
}
