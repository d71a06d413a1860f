package astcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlogcover/dlogcover/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPutGetHit(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.cpp", "int main(){}")

	c := New(10, 0)
	root := []*types.ASTNodeInfo{{Kind: types.KindFunction, Name: "main"}}
	require.NoError(t, c.Put(path, root, []byte("int main(){}"), []string{}))

	entry, ok := c.Get(path, nil)
	require.True(t, ok)
	assert.Equal(t, "main", entry.Root[0].Name)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
}

func TestGetMissOnContentChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.cpp", "int main(){}")

	c := New(10, 0)
	require.NoError(t, c.Put(path, nil, []byte("int main(){}"), []string{}))

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("int main(){ return 1; }"), 0o644))

	_, ok := c.Get(path, nil)
	assert.False(t, ok)
}

func TestDeepCopyIsolation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.cpp", "x")

	c := New(10, 0)
	root := []*types.ASTNodeInfo{{Kind: types.KindFunction, Name: "f", Children: []*types.ASTNodeInfo{{Name: "child"}}}}
	require.NoError(t, c.Put(path, root, []byte("x"), []string{}))

	entry, ok := c.Get(path, nil)
	require.True(t, ok)
	entry.Root[0].Name = "mutated"
	entry.Root[0].Children[0].Name = "mutated-child"

	entry2, ok := c.Get(path, nil)
	require.True(t, ok)
	assert.Equal(t, "f", entry2.Root[0].Name)
	assert.Equal(t, "child", entry2.Root[0].Children[0].Name)
}

func TestLRUEviction(t *testing.T) {
	dir := t.TempDir()
	pathA := writeFile(t, dir, "a.cpp", "a")
	pathB := writeFile(t, dir, "b.cpp", "b")
	pathC := writeFile(t, dir, "c.cpp", "c")

	c := New(2, 0)
	require.NoError(t, c.Put(pathA, nil, []byte("a"), []string{}))
	require.NoError(t, c.Put(pathB, nil, []byte("b"), []string{}))
	require.NoError(t, c.Put(pathC, nil, []byte("c"), []string{}))

	assert.Equal(t, 2, c.Stats().Entries)
	_, ok := c.Get(pathA, nil)
	assert.False(t, ok, "a should have been evicted as LRU")
	_, ok = c.Get(pathC, nil)
	assert.True(t, ok)
}

func TestDependencyInvalidation(t *testing.T) {
	dir := t.TempDir()
	dep := writeFile(t, dir, "dep.h", "#define X 1")
	path := writeFile(t, dir, "a.cpp", `#include "dep.h"`)

	c := New(10, 0)
	require.NoError(t, c.Put(path, nil, []byte(`#include "dep.h"`), []string{dep}))

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(dep, []byte("#define X 2"), 0o644))

	_, ok := c.Get(path, []string{dep})
	assert.False(t, ok)
}

func TestStatsStringFormat(t *testing.T) {
	c := New(10, 1000)
	s := c.Stats().String()
	assert.Contains(t, s, "Hit ratio:")
	assert.Contains(t, s, "Entries: 0 / 10")
}
