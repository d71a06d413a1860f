package compiledb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSidecarMergesIntoExistingEntry(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.cpp")
	require.NoError(t, os.WriteFile(src, []byte("int main(){}"), 0o644))

	dbPath := writeCompileCommands(t, dir, `[
  {"directory": "`+dir+`", "file": "main.cpp", "command": "c++ -c main.cpp"}
]`)

	sidecar := `[[file]]
path = "` + src + `"
includes = ["vendor/include"]
defines = ["EXTRA=1"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "compile_commands.extra.toml"), []byte(sidecar), 0o644))

	store := New()
	require.NoError(t, store.Load(dbPath))
	require.NoError(t, store.LoadSidecar(dbPath))

	info, ok := store.Lookup(src)
	require.True(t, ok)
	assert.Contains(t, info.Includes, "vendor/include")
	assert.Contains(t, info.Defines, "EXTRA=1")
}

func TestLoadSidecarMissingFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	store := New()
	require.NoError(t, store.LoadSidecar(filepath.Join(dir, "compile_commands.json")))
}

func TestLoadSidecarCreatesBareEntryForUnknownPath(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "other.cpp")

	sidecar := `[[file]]
path = "` + other + `"
includes = ["extra/inc"]
`
	dbPath := filepath.Join(dir, "compile_commands.json")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "compile_commands.extra.toml"), []byte(sidecar), 0o644))

	store := New()
	require.NoError(t, store.LoadSidecar(dbPath))

	info, ok := store.Lookup(other)
	require.True(t, ok)
	assert.Contains(t, info.Includes, "extra/inc")
}
