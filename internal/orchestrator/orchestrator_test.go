package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlogcover/dlogcover/internal/config"
	"github.com/dlogcover/dlogcover/internal/dlogerrors"
)

func writeSrc(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunEnumeratesAndAnalyzes(t *testing.T) {
	root := t.TempDir()
	writeSrc(t, filepath.Join(root, "main.cpp"), `void doWork() { qWarning("uh oh"); }`)

	cfg := config.Default()
	cfg.Project.Directory = root
	cfg.Scan.Directories = []string{root}
	cfg.Scan.FileExtensions = []string{".cpp"}
	cfg.Analysis.Mode = config.ModeCppOnly

	orch, err := NewWithConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(orch.Close)

	results, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results.Files, 1)
}

func TestExitCodeMapsConfigError(t *testing.T) {
	err := &dlogerrors.ConfigError{Field: "version", Msg: "bad"}
	assert.Equal(t, ExitConfigError, ExitCode(err))
}

func TestExitCodeMapsSourceCollectionError(t *testing.T) {
	err := &SourceCollectionError{Dir: "/nope", Err: os.ErrNotExist}
	assert.Equal(t, ExitSourceEnumeration, ExitCode(err))
}

func TestExitCodeMapsReportError(t *testing.T) {
	err := &dlogerrors.ReportError{Format: "json", Msg: "disk full"}
	assert.Equal(t, ExitReportWriteIO, ExitCode(err))
}

func TestExitCodeDefaultsToAnalysisFatal(t *testing.T) {
	assert.Equal(t, ExitAnalysisFatal, ExitCode(&dlogerrors.PipelineError{Stage: "parse", Msg: "boom"}))
}

func TestExitCodeSuccessOnNil(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
}
