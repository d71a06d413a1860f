package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlogcover/dlogcover/internal/types"
)

func testServer(results *types.PipelineResults) *Server {
	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
	}
	s.registerTools()
	s.results = results
	return s
}

func sampleResultsForTools() *types.PipelineResults {
	results := types.NewPipelineResults()
	results.Files["a.cpp"] = &types.FileResult{
		Path: "a.cpp", Lang: types.LangCpp, ParseSuccess: true,
		Coverage: types.CoverageStats{Overall: 1.0},
	}
	results.Overall = types.CoverageStats{
		Overall: 0.5,
		Axes:    map[types.CoverageAxis]types.AxisStats{types.AxisFunction: {Total: 2, Covered: 1}},
		UncoveredPaths: []types.UncoveredPath{
			{Axis: types.AxisFunction, Kind: types.KindFunction, Name: "f", Suggestion: "add entry/exit logging"},
			{Axis: types.AxisBranch, Kind: types.KindIfStmt, Name: "if", Suggestion: "log the condition outcome"},
		},
	}
	return results
}

func decodeText(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(tc.Text), v))
}

func TestHandleAnalyzeFileReturnsCachedResult(t *testing.T) {
	s := testServer(sampleResultsForTools())
	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(`{"path":"a.cpp"}`)}}

	res, err := s.handleAnalyzeFile(context.Background(), req)
	require.NoError(t, err)

	var fr types.FileResult
	decodeText(t, res, &fr)
	assert.Equal(t, "a.cpp", fr.Path)
}

func TestHandleAnalyzeFileUnknownPath(t *testing.T) {
	s := testServer(sampleResultsForTools())
	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(`{"path":"missing.cpp"}`)}}

	_, err := s.handleAnalyzeFile(context.Background(), req)
	assert.Error(t, err)
}

func TestHandleCoverageSummary(t *testing.T) {
	s := testServer(sampleResultsForTools())
	res, err := s.handleCoverageSummary(context.Background(), &mcp.CallToolRequest{})
	require.NoError(t, err)

	var stats types.CoverageStats
	decodeText(t, res, &stats)
	assert.Equal(t, 0.5, stats.Overall)
}

func TestHandleUncoveredPathsFiltersByAxis(t *testing.T) {
	s := testServer(sampleResultsForTools())
	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(`{"axis":"branch"}`)}}

	res, err := s.handleUncoveredPaths(context.Background(), req)
	require.NoError(t, err)

	var paths []types.UncoveredPath
	decodeText(t, res, &paths)
	require.Len(t, paths, 1)
	assert.Equal(t, types.AxisBranch, paths[0].Axis)
}

func TestHandleUncoveredPathsNoFilterReturnsAll(t *testing.T) {
	s := testServer(sampleResultsForTools())
	res, err := s.handleUncoveredPaths(context.Background(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}})
	require.NoError(t, err)

	var paths []types.UncoveredPath
	decodeText(t, res, &paths)
	assert.Len(t, paths, 2)
}

func TestAxisFromNameRejectsUnknown(t *testing.T) {
	_, ok := axisFromName("bogus")
	assert.False(t, ok)
}
