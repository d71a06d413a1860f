package goanalyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlogcover/dlogcover/internal/config"
	"github.com/dlogcover/dlogcover/internal/types"
)

func TestNewDisabledWhenWorkerMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	b := New(config.Default())
	assert.False(t, b.IsEnabled())

	forest, err := b.AnalyzeFile("anything.go", []byte("package main"))
	require.NoError(t, err)
	assert.Nil(t, forest)
}

func TestToWireConfigCarriesFunctionSets(t *testing.T) {
	cfg := config.Default()
	wire := toWireConfig(cfg)
	assert.True(t, wire.StandardLog.Enabled)
	assert.Contains(t, wire.StandardLog.Functions, "Fatalf")
	assert.Contains(t, wire.Zap.LoggerFunctions, "Error")
	assert.Contains(t, wire.Zap.SugaredFunctions, "Errorf")
}

func TestToNodeForestBuildsLogCallChildren(t *testing.T) {
	functions := []Function{
		{
			Name: "doWork", Line: 10, Column: 1, EndLine: 14, EndColumn: 2,
			HasLogging: true,
			LogCalls: []LogCall{
				{FunctionName: "Errorf", Library: "logrus", Level: "error", Line: 12, Column: 3},
			},
		},
	}

	forest := toNodeForest(functions, "/abs/work.go")
	require.Len(t, forest, 1)
	fn := forest[0]
	assert.Equal(t, types.KindFunction, fn.Kind)
	assert.True(t, fn.HasLogging)
	require.Len(t, fn.Children, 1)

	call := fn.Children[0]
	assert.Equal(t, types.KindLogCallExpr, call.Kind)
	assert.Equal(t, types.LibLogrus, call.LogCall.Library)
	assert.Equal(t, types.LevelError, call.LogCall.Level)
}

func TestLibraryAndLevelFromWire(t *testing.T) {
	assert.Equal(t, types.LibGoStd, libraryFromWire("standard_log"))
	assert.Equal(t, types.LibGoSlog, libraryFromWire("slog"))
	assert.Equal(t, types.LibNone, libraryFromWire("unknown"))

	assert.Equal(t, types.LevelWarning, levelFromWire("warn"))
	assert.Equal(t, types.LevelWarning, levelFromWire("warning"))
	assert.Equal(t, types.LevelFatal, levelFromWire("fatal"))
	assert.Equal(t, types.LevelUnknown, levelFromWire("nonsense"))
}

func TestBridgeCacheHitReturnsDeepCopy(t *testing.T) {
	c := newBridgeCache()
	original := []*types.ASTNodeInfo{{Kind: types.KindFunction, Name: "f", HasLogging: true}}
	c.put("/a.go", "hash1", original)

	got, ok := c.get("/a.go", "hash1")
	require.True(t, ok)
	require.Len(t, got, 1)
	got[0].Name = "mutated"
	assert.Equal(t, "f", original[0].Name)

	_, missed := c.get("/a.go", "hash2")
	assert.False(t, missed)

	hits, misses, _ := c.stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}
