package scanner

import "os"

// Unit is one source file prepared for compilation. Identity is the
// original path; CompilePath is what the compiler service actually
// receives (the original file, or a rewritten temporary when the file
// carried a metadata header). Offset is the count of leading lines
// stripped during rewriting, added back to compiler-reported line
// numbers to recover original positions.
type Unit struct {
	Path        string
	CompilePath string
	Offset      int
	Includes    []string
	Imports     []string

	temp     bool
	released bool
}

// Rewritten reports whether the unit compiles from a generated
// temporary rather than the original file.
func (u *Unit) Rewritten() bool { return u.temp }

// Release removes the unit's temporary file, if any. It is idempotent
// and safe to call on units that never created one; the orchestrator
// calls it for every unit on every exit path.
func (u *Unit) Release() error {
	if !u.temp || u.released {
		return nil
	}
	u.released = true
	return os.Remove(u.CompilePath)
}
