// Package entry locates the single procedure a compiled script program
// starts from.
package entry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when zero or more than one candidate
// matches; the caller reports it verbatim and exits nonzero.
var ErrNotFound = errors.New("Entry point not found. Use -entry.")

// Program is the reflective view of a compiled script the locator
// searches: the declared type names and, per type, the names of
// methods declared directly on it (not promoted through embedding)
// whose signature is exactly one []string parameter. Implemented by
// the compiler service's program handle.
type Program interface {
	TypeNames() []string
	Methods(typeName string) []string
}

// Candidate names one eligible entry procedure.
type Candidate struct {
	Type   string
	Method string
}

func (c Candidate) String() string { return c.Type + "." + c.Method }

// ParseSpec validates an explicit -entry value of the form
// Type.Method. An empty spec selects auto-discovery; a non-empty spec
// without a type-qualifying dot is a usage error. Callers validate
// before any file I/O happens.
func ParseSpec(spec string) (Candidate, error) {
	if spec == "" {
		return Candidate{}, nil
	}
	dot := strings.LastIndex(spec, ".")
	if dot <= 0 || dot == len(spec)-1 {
		return Candidate{}, fmt.Errorf("invalid -entry value %q: want Type.Method", spec)
	}
	return Candidate{Type: spec[:dot], Method: spec[dot+1:]}, nil
}

// Locate finds exactly one entry candidate in prog. With an explicit
// specifier it searches only the named type's own methods; without
// one it collects every method literally named Main across all types.
// Anything other than exactly one match is ErrNotFound.
func Locate(prog Program, spec Candidate) (Candidate, error) {
	var found []Candidate

	if spec.Type != "" {
		for _, name := range prog.Methods(spec.Type) {
			if name == spec.Method {
				found = append(found, spec)
			}
		}
	} else {
		for _, typ := range prog.TypeNames() {
			for _, name := range prog.Methods(typ) {
				if name == "Main" {
					found = append(found, Candidate{Type: typ, Method: name})
				}
			}
		}
	}

	if len(found) != 1 {
		return Candidate{}, ErrNotFound
	}
	return found[0], nil
}
