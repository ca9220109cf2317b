package compiler

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"goscript/scanner"
)

var errorWord = color.New(color.FgRed)

// Location is a diagnostic position mapped back onto the original
// source file: the rewritten unit's line offset has been added and the
// path is the file the user actually wrote.
type Location struct {
	Path string
	Line int
	Col  int
}

// remap finds the unit owning a diagnostic by case-insensitive match
// of the compile-ready path and restores the original location. The
// ok result is false for diagnostics the service reported against a
// path no unit owns (the location is then passed through unchanged).
func remap(units []*scanner.Unit, d Diagnostic) (Location, bool) {
	for _, u := range units {
		if strings.EqualFold(u.CompilePath, d.Path) {
			return Location{Path: u.Path, Line: d.Line + u.Offset, Col: d.Col}, true
		}
	}
	return Location{Path: d.Path, Line: d.Line, Col: d.Col}, false
}

// formatDiagnostic renders one remapped diagnostic in the fixed
// reporting format. An empty code collapses "error <code>:" to
// "error:".
func formatDiagnostic(loc Location, d Diagnostic) string {
	errWord := errorWord.Sprint("error")
	if d.Code == "" {
		return fmt.Sprintf("%s(%d,%d) : %s: %s", loc.Path, loc.Line, loc.Col, errWord, d.Message)
	}
	return fmt.Sprintf("%s(%d,%d) : %s %s: %s", loc.Path, loc.Line, loc.Col, errWord, d.Code, d.Message)
}

// reportDiagnostics writes every diagnostic, remapped, in service
// order.
func reportDiagnostics(w io.Writer, units []*scanner.Unit, diags []Diagnostic) {
	for _, d := range diags {
		loc, _ := remap(units, d)
		fmt.Fprintln(w, formatDiagnostic(loc, d))
	}
}
