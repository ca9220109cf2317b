// Package resolver turns directive targets into usable paths and builds
// the transitive closure of included source files.
package resolver

import (
	"os"
	"path/filepath"
)

// baseDir returns the directory a referencing path resolves against.
// A path that is itself a directory resolves against itself.
func baseDir(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

// IncludeResolver resolves //#include targets relative to the
// referencing file's directory. No existence check happens here; a
// missing file surfaces as a fatal error when the scanner opens it.
type IncludeResolver struct {
	dir string
}

// NewIncludeResolver creates a resolver for targets referenced from
// path (a file or a directory).
func NewIncludeResolver(path string) *IncludeResolver {
	return &IncludeResolver{dir: baseDir(path)}
}

// Resolve joins the referencer's directory with target, verbatim.
func (r *IncludeResolver) Resolve(target string) string {
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Join(r.dir, target)
}

// ImportResolver resolves //#import targets. A target that names an
// existing path beside the referencing file resolves to that path; any
// other target is returned unchanged, on the assumption it names a
// library the compiler service can find through its own search
// mechanism (a module reference like golang.org/x/term@v0.39.0).
type ImportResolver struct {
	dir string
}

// NewImportResolver creates a resolver for targets referenced from
// path (a file or a directory).
func NewImportResolver(path string) *ImportResolver {
	return &ImportResolver{dir: baseDir(path)}
}

// Resolve returns the local path if it exists, else the raw target.
func (r *ImportResolver) Resolve(target string) string {
	local := target
	if !filepath.IsAbs(local) {
		local = filepath.Join(r.dir, target)
	}
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return target
}
