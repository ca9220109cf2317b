package resolver

import (
	"fmt"
	"path/filepath"

	"goscript/scanner"
)

// Set is the resolution set: canonical original path → scanned unit,
// closed under includes once ResolveAll returns. Units keep their
// discovery order so compilation and cleanup stay deterministic.
type Set struct {
	units map[string]*scanner.Unit
	order []string
}

// Units returns the units in discovery order.
func (s *Set) Units() []*scanner.Unit {
	out := make([]*scanner.Unit, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.units[k])
	}
	return out
}

// Len returns the number of resolved units.
func (s *Set) Len() int { return len(s.order) }

// Lookup returns the unit for a canonical path, if resolved.
func (s *Set) Lookup(path string) (*scanner.Unit, bool) {
	u, ok := s.units[path]
	return u, ok
}

// Imports returns every unit's import references flattened in
// discovery order. Duplicates across units are tolerated; the
// compiler service deduplicates as it sees fit.
func (s *Set) Imports() []string {
	var refs []string
	for _, k := range s.order {
		refs = append(refs, s.units[k].Imports...)
	}
	return refs
}

// CompilePaths returns every unit's compile-ready path in discovery
// order.
func (s *Set) CompilePaths() []string {
	paths := make([]string, 0, len(s.order))
	for _, k := range s.order {
		paths = append(paths, s.units[k].CompilePath)
	}
	return paths
}

// Release removes every temporary file owned by the set's units. The
// first removal error is returned; release of the remaining units
// still runs.
func (s *Set) Release() error {
	var first error
	for _, k := range s.order {
		if err := s.units[k].Release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Set) add(path string, u *scanner.Unit) {
	s.units[path] = u
	s.order = append(s.order, path)
}

// canonical normalizes a path into the set's key form.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path %s: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// scanOne scans a single file with resolvers rooted at its directory.
func scanOne(path string) (*scanner.Unit, error) {
	return scanner.Scan(path, NewIncludeResolver(path), NewImportResolver(path))
}

// ResolveAll seeds the set with the entry file and repeatedly scans
// newly discovered include targets until a pass finds nothing new.
// The first resolution of a path wins and the path is never re-parsed,
// which is also what terminates include cycles. Import targets are
// collected as opaque references and never opened as source.
//
// A missing include (or entry) file aborts resolution; the partially
// built set is still returned so the caller can release any temporary
// files created before the failure.
func ResolveAll(entryFile string) (*Set, error) {
	set := &Set{units: make(map[string]*scanner.Unit)}

	entry, err := canonical(entryFile)
	if err != nil {
		return set, err
	}
	u, err := scanOne(entry)
	if err != nil {
		return set, err
	}
	set.add(entry, u)

	for {
		var batch []string
		seen := make(map[string]bool)
		for _, k := range set.order {
			for _, inc := range set.units[k].Includes {
				path, err := canonical(inc)
				if err != nil {
					return set, err
				}
				if _, ok := set.units[path]; ok || seen[path] {
					continue
				}
				seen[path] = true
				batch = append(batch, path)
			}
		}
		if len(batch) == 0 {
			return set, nil
		}
		for _, path := range batch {
			u, err := scanOne(path)
			if err != nil {
				return set, err
			}
			set.add(path, u)
		}
	}
}
