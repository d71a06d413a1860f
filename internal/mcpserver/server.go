// Package mcpserver exposes dlogcover's coverage results over the Model
// Context Protocol, mirroring the teacher's primary consumer-facing
// feature: an MCP server over its index, here serving coverage results
// instead.
// Grounded on the teacher's internal/mcp/server.go (NewServer + AddTool
// registration, stdio transport) and internal/mcp/response.go
// (TextContent-wrapped JSON tool results).
package mcpserver

import (
	"context"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dlogcover/dlogcover/internal/dlog"
	"github.com/dlogcover/dlogcover/internal/orchestrator"
	"github.com/dlogcover/dlogcover/internal/types"
)

const serverName = "dlogcover-mcp-server"
const serverVersion = "0.1.0"

// Server wraps one completed orchestrator run behind three read-only MCP
// tools. It does not re-analyze on each call: Start runs the analysis
// once up front and serves every query from the cached PipelineResults,
// layering no new analysis semantics over the orchestrator's existing
// public API.
type Server struct {
	mcp  *mcp.Server
	orch *orchestrator.Orchestrator

	mu      sync.RWMutex
	results *types.PipelineResults
}

// New builds a Server around an Orchestrator already constructed from a
// frozen Config.
func New(orch *orchestrator.Orchestrator) *Server {
	s := &Server{
		orch: orch,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: serverVersion,
		}, nil),
	}
	s.registerTools()
	return s
}

// Start runs the analysis once, caches its results, and serves MCP
// requests over stdio until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	results, err := s.orch.Run(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.results = results
	s.mu.Unlock()

	dlog.Printf(dlog.ComponentMCP, "serving %d analyzed files over MCP stdio transport", len(results.Files))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) snapshot() *types.PipelineResults {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.results
}
