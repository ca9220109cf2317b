package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestIncludeResolver(t *testing.T) {
	dir := t.TempDir()
	script := write(t, dir, "main.go", "package main\n")

	r := NewIncludeResolver(script)
	assert.Equal(t, filepath.Join(dir, "util.go"), r.Resolve("util.go"))
	assert.Equal(t, filepath.Join(dir, "sub", "x.go"), r.Resolve("sub/x.go"))
	// No existence check: missing targets resolve anyway and fail
	// later when the scanner opens them.
	assert.Equal(t, filepath.Join(dir, "missing.go"), r.Resolve("missing.go"))

	// A directory referencer resolves against itself.
	rd := NewIncludeResolver(dir)
	assert.Equal(t, filepath.Join(dir, "util.go"), rd.Resolve("util.go"))
}

func TestImportResolver(t *testing.T) {
	dir := t.TempDir()
	script := write(t, dir, "main.go", "package main\n")
	write(t, dir, "lib/go.mod", "module locallib\n")

	r := NewImportResolver(script)
	// An existing sibling path resolves locally.
	assert.Equal(t, filepath.Join(dir, "lib"), r.Resolve("lib"))
	// Anything else stays a raw library reference for the compiler
	// service's own search mechanism.
	assert.Equal(t, "golang.org/x/term@v0.39.0", r.Resolve("golang.org/x/term@v0.39.0"))
}

func TestResolveAllClosedUnderIncludes(t *testing.T) {
	dir := t.TempDir()
	a := write(t, dir, "a.go", "//#include b.go\npackage main\n")
	b := write(t, dir, "b.go", "package main\n")

	set, err := ResolveAll(a)
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())

	aCanon, _ := canonical(a)
	bCanon, _ := canonical(b)
	_, ok := set.Lookup(aCanon)
	assert.True(t, ok)
	_, ok = set.Lookup(bCanon)
	assert.True(t, ok)

	// Every include of every member resolves to a key in the set.
	for _, u := range set.Units() {
		for _, inc := range u.Includes {
			c, err := canonical(inc)
			require.NoError(t, err)
			_, ok := set.Lookup(c)
			assert.True(t, ok, "include %s not in set", inc)
		}
	}
}

func TestResolveAllCycle(t *testing.T) {
	dir := t.TempDir()
	a := write(t, dir, "a.go", "//#include b.go\npackage main\n")
	write(t, dir, "b.go", "//#include a.go\npackage main\n")

	set, err := ResolveAll(a)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
}

func TestResolveAllDiamond(t *testing.T) {
	dir := t.TempDir()
	a := write(t, dir, "a.go", "//#include b.go\n//#include c.go\npackage main\n")
	write(t, dir, "b.go", "//#include d.go\npackage main\n")
	write(t, dir, "c.go", "//#include d.go\npackage main\n")
	write(t, dir, "d.go", "package main\n")

	set, err := ResolveAll(a)
	require.NoError(t, err)
	assert.Equal(t, 4, set.Len())
}

func TestResolveAllRelativeSubdir(t *testing.T) {
	dir := t.TempDir()
	a := write(t, dir, "a.go", "//#include sub/b.go\npackage main\n")
	b := write(t, dir, "sub/b.go", "//#include c.go\npackage main\n")
	c := write(t, dir, "sub/c.go", "package main\n")

	set, err := ResolveAll(a)
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())
	// b's include resolved against b's own directory, not a's.
	bCanon, _ := canonical(b)
	u, ok := set.Lookup(bCanon)
	require.True(t, ok)
	cCanon, _ := canonical(c)
	gotC, _ := canonical(u.Includes[0])
	assert.Equal(t, cCanon, gotC)
	_, ok = set.Lookup(cCanon)
	assert.True(t, ok)
}

func TestResolveAllMissingInclude(t *testing.T) {
	dir := t.TempDir()
	// The entry carries a metadata header so a temp file exists by
	// the time resolution fails.
	a := write(t, dir, "a.go", "::{\n}::\n\n//#include gone.go\npackage main\n")

	set, err := ResolveAll(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "File not found: "+filepath.Join(dir, "gone.go"))

	// The partial set still carries the entry unit; releasing it
	// removes the temp.
	require.Equal(t, 1, set.Len())
	tmp := set.Units()[0].CompilePath
	_, statErr := os.Stat(tmp)
	require.NoError(t, statErr)
	require.NoError(t, set.Release())
	_, statErr = os.Stat(tmp)
	assert.True(t, os.IsNotExist(statErr))
}

func TestResolveAllMissingEntry(t *testing.T) {
	set, err := ResolveAll(filepath.Join(t.TempDir(), "nope.go"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "File not found")
	assert.Equal(t, 0, set.Len())
}

func TestImportsNeverScanned(t *testing.T) {
	dir := t.TempDir()
	// One import resolves to an existing local directory, the other
	// is a raw module reference; neither becomes a source unit.
	write(t, dir, "lib/go.mod", "module locallib\n")
	a := write(t, dir, "a.go", "//#import lib\n//#import example.com/mod@v1.0.0\npackage main\n")

	set, err := ResolveAll(a)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, []string{filepath.Join(dir, "lib"), "example.com/mod@v1.0.0"}, set.Imports())
}

func TestSetFirstResolutionWins(t *testing.T) {
	dir := t.TempDir()
	a := write(t, dir, "a.go", "//#include b.go\n//#include b.go\npackage main\n")
	b := write(t, dir, "b.go", "package main\n")

	set, err := ResolveAll(a)
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	bCanon, _ := canonical(b)
	u1, _ := set.Lookup(bCanon)
	// Same unit, never re-parsed.
	for _, u := range set.Units() {
		if u.Path == u1.Path {
			assert.Same(t, u1, u)
		}
	}
}

func TestSetCompilePathsAndOrder(t *testing.T) {
	dir := t.TempDir()
	a := write(t, dir, "a.go", "//#include b.go\npackage main\n")
	write(t, dir, "b.go", "package main\n")

	set, err := ResolveAll(a)
	require.NoError(t, err)
	paths := set.CompilePaths()
	require.Len(t, paths, 2)
	// Entry first, includes in discovery order.
	aCanon, _ := canonical(a)
	assert.Equal(t, aCanon, paths[0])
}
