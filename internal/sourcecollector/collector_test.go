package sourcecollector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlogcover/dlogcover/internal/config"
	"github.com/dlogcover/dlogcover/internal/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanDirectoryFiltersByExtensionAndExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "main.cpp"), "int main() {}")
	writeFile(t, filepath.Join(root, "src", "widget.h"), "class Widget {};")
	writeFile(t, filepath.Join(root, "README.md"), "docs")
	writeFile(t, filepath.Join(root, "build", "generated.cpp"), "// generated")

	cfg := config.Default()
	cfg.Project.Directory = root
	cfg.Scan.Directories = []string{root}
	cfg.Scan.FileExtensions = []string{".cpp", ".h"}
	cfg.Scan.ExcludePatterns = []string{"**/build/**"}

	c := New(cfg)
	files, err := c.CollectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)

	byPath := map[string]types.SourceFileInfo{}
	for _, f := range files {
		byPath[f.RelPath] = f
	}
	main, ok := byPath["src/main.cpp"]
	require.True(t, ok)
	assert.Equal(t, types.LangCpp, main.Lang)
	assert.False(t, main.IsHeader)
	assert.Equal(t, "int main() {}", main.Content)

	header, ok := byPath["src/widget.h"]
	require.True(t, ok)
	assert.True(t, header.IsHeader)
}

func TestScanDirectoryGoFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main")
	writeFile(t, filepath.Join(root, "main_test.go"), "package main")

	cfg := config.Default()
	cfg.Project.Directory = root
	cfg.Scan.Directories = []string{root}
	cfg.Scan.FileExtensions = []string{".go"}
	cfg.Scan.ExcludePatterns = []string{"**/*_test.go"}

	c := New(cfg)
	files, err := c.CollectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].RelPath)
	assert.Equal(t, types.LangGo, files[0].Lang)
}
