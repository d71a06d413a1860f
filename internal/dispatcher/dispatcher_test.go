package dispatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlogcover/dlogcover/internal/compiledb"
	"github.com/dlogcover/dlogcover/internal/config"
	"github.com/dlogcover/dlogcover/internal/types"
)

func newDispatcher(t *testing.T, mutate func(*config.Config)) *Dispatcher {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	d, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func cppFile(path, content string) types.SourceFileInfo {
	return types.SourceFileInfo{AbsPath: path, RelPath: path, Content: content, Lang: types.LangCpp}
}

func TestRunCppOnlyAnalyzesAndAggregates(t *testing.T) {
	d := newDispatcher(t, func(cfg *config.Config) {
		cfg.Analysis.Mode = config.ModeCppOnly
	})

	files := []types.SourceFileInfo{
		cppFile("a.cpp", `void doWork() { qWarning("uh oh"); }`),
		cppFile("b.cpp", `int add(int a, int b) { return a + b; }`),
	}

	results, err := d.Run(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, results.Files, 2)

	a := results.Files["a.cpp"]
	require.NotNil(t, a)
	assert.True(t, a.ParseSuccess)
	assert.Equal(t, types.LangCpp, a.Lang)

	assert.Contains(t, results.Overall.Axes, types.AxisFunction)
}

func TestRunCppOnlyForcesSerialForSingleFile(t *testing.T) {
	d := newDispatcher(t, func(cfg *config.Config) {
		cfg.Analysis.Mode = config.ModeCppOnly
		cfg.Performance.EnableParallelAnalysis = true
	})

	files := []types.SourceFileInfo{cppFile("only.cpp", `void f() {}`)}
	results, err := d.Run(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, results.Files, 1)
}

func TestRunGoOnlySkipsWhenBridgeDisabled(t *testing.T) {
	d := newDispatcher(t, func(cfg *config.Config) {
		cfg.Analysis.Mode = config.ModeGoOnly
	})

	files := []types.SourceFileInfo{
		{AbsPath: "main.go", RelPath: "main.go", Content: "package main", Lang: types.LangGo},
	}
	results, err := d.Run(context.Background(), files)
	require.NoError(t, err)
	assert.Empty(t, results.Files)
}

func TestRunAutoDetectRoutesEachLanguage(t *testing.T) {
	d := newDispatcher(t, func(cfg *config.Config) {
		cfg.Analysis.Mode = config.ModeAutoDetect
	})

	files := []types.SourceFileInfo{
		cppFile("a.cpp", `void f() {}`),
		{AbsPath: "main.go", RelPath: "main.go", Content: "package main", Lang: types.LangGo},
	}
	results, err := d.Run(context.Background(), files)
	require.NoError(t, err)

	require.Contains(t, results.Files, "a.cpp")
	assert.NotContains(t, results.Files, "main.go") // bridge disabled in test env
}

func TestLogDominantLanguageDoesNotAlterRouting(t *testing.T) {
	d := newDispatcher(t, func(cfg *config.Config) {
		cfg.Analysis.Mode = config.ModeAutoDetect
		cfg.Analysis.AutoDetection = config.AutoDetection{SampleSize: 2, ConfidenceThreshold: 0.5}
	})

	files := []types.SourceFileInfo{
		cppFile("a.cpp", `void f() {}`),
		cppFile("b.cpp", `void g() {}`),
	}
	// Purely informational: must not panic and must not change results.
	d.logDominantLanguage(files)

	results, err := d.Run(context.Background(), files)
	require.NoError(t, err)
	assert.Len(t, results.Files, 2)
}

func TestRunCppOnlyStreamingPipelineRoutesThroughStages(t *testing.T) {
	d := newDispatcher(t, func(cfg *config.Config) {
		cfg.Analysis.Mode = config.ModeCppOnly
		cfg.Performance.EnableStreamingPipeline = true
		cfg.Performance.EnableParallelAnalysis = true
	})

	files := []types.SourceFileInfo{
		cppFile("a.cpp", `void doWork() { qWarning("uh oh"); }`),
		cppFile("b.cpp", `int add(int a, int b) { return a + b; }`),
	}

	results, err := d.Run(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, results.Files, 2)
	assert.Contains(t, results.Overall.Axes, types.AxisFunction)
}

func TestRunCppOnlyConsultsCompileStoreWithoutAffectingResults(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "a.cpp")
	require.NoError(t, os.WriteFile(abs, []byte(`void f() {}`), 0o644))

	dbPath := filepath.Join(dir, "compile_commands.json")
	dbContent := `[{"directory":"` + dir + `","file":"` + abs + `","arguments":["clang++","-Iinclude","-DFOO=1","-c",` + "\"" + abs + "\"" + `]}]`
	require.NoError(t, os.WriteFile(dbPath, []byte(dbContent), 0o644))

	store := compiledb.New()
	require.NoError(t, store.Load(dbPath))

	cfg := config.Default()
	cfg.Analysis.Mode = config.ModeCppOnly
	d, err := New(cfg, store)
	require.NoError(t, err)
	t.Cleanup(d.Close)

	files := []types.SourceFileInfo{{AbsPath: abs, RelPath: "a.cpp", Content: "void f() {}", Lang: types.LangCpp}}
	results, err := d.Run(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, results.Files, 1)
}

func TestFilterLangSplitsBySourceLanguage(t *testing.T) {
	files := []types.SourceFileInfo{
		cppFile("a.cpp", ""),
		{AbsPath: "b.go", Lang: types.LangGo},
	}
	assert.Len(t, filterLang(files, types.LangCpp), 1)
	assert.Len(t, filterLang(files, types.LangGo), 1)
}
