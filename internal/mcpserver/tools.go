package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dlogcover/dlogcover/internal/types"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "analyze_file",
		Description: "Return the cached per-file coverage result for one already-analyzed source file.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {Type: "string", Description: "Absolute or analyzer-relative path of the file, as reported by the run"},
			},
			Required: []string{"path"},
		},
	}, s.handleAnalyzeFile)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_coverage_summary",
		Description: "Return the overall coverage stats aggregated across every analyzed file.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleCoverageSummary)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_uncovered_paths",
		Description: "Return uncovered-path records across every analyzed file, optionally filtered to one coverage axis.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"axis": {Type: "string", Description: "One of function|branch|exception|key_path; omit for all axes"},
			},
		},
	}, s.handleUncoveredPaths)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: marshaling tool response: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(content)}}}, nil
}

type analyzeFileParams struct {
	Path string `json:"path"`
}

func (s *Server) handleAnalyzeFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params analyzeFileParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return nil, fmt.Errorf("mcpserver: invalid analyze_file arguments: %w", err)
	}

	results := s.snapshot()
	if results == nil {
		return nil, fmt.Errorf("mcpserver: no analysis results available yet")
	}

	fr, ok := results.Files[params.Path]
	if !ok {
		return nil, fmt.Errorf("mcpserver: no analyzed file at %q", params.Path)
	}
	return jsonResult(fr)
}

func (s *Server) handleCoverageSummary(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results := s.snapshot()
	if results == nil {
		return nil, fmt.Errorf("mcpserver: no analysis results available yet")
	}
	return jsonResult(results.Overall)
}

type uncoveredPathsParams struct {
	Axis string `json:"axis"`
}

func (s *Server) handleUncoveredPaths(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params uncoveredPathsParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return nil, fmt.Errorf("mcpserver: invalid get_uncovered_paths arguments: %w", err)
		}
	}

	results := s.snapshot()
	if results == nil {
		return nil, fmt.Errorf("mcpserver: no analysis results available yet")
	}

	var axisFilter *types.CoverageAxis
	if params.Axis != "" {
		axis, ok := axisFromName(params.Axis)
		if !ok {
			return nil, fmt.Errorf("mcpserver: unknown axis %q", params.Axis)
		}
		axisFilter = &axis
	}

	var out []types.UncoveredPath
	for _, path := range results.Overall.UncoveredPaths {
		if axisFilter != nil && path.Axis != *axisFilter {
			continue
		}
		out = append(out, path)
	}
	return jsonResult(out)
}

func axisFromName(name string) (types.CoverageAxis, bool) {
	switch name {
	case "function":
		return types.AxisFunction, true
	case "branch":
		return types.AxisBranch, true
	case "exception":
		return types.AxisException, true
	case "key_path":
		return types.AxisKeyPath, true
	default:
		return 0, false
	}
}
