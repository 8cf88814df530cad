// Package mcpserver exposes the tool registry over the Model Context
// Protocol on stdio. This is the agent-facing boundary: every tool call an
// MCP client makes goes through the execution pipeline and its
// authorization guard.
package mcpserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/toolgate/internal/pipeline"
	"github.com/flemzord/toolgate/internal/tool"
)

// Executor runs tool calls. Implemented by the execution pipeline.
type Executor interface {
	ExecuteTool(ctx context.Context, name string, args map[string]any, call tool.CallContext) pipeline.Record
}

// Config holds the server's collaborators.
type Config struct {
	Name       string
	Version    string
	Registry   *tool.Registry
	Executor   Executor
	WorkingDir string
	Logger     *slog.Logger
}

// Server bridges the MCP protocol to the pipeline.
type Server struct {
	mcp        *server.MCPServer
	executor   Executor
	workingDir string
	logger     *slog.Logger
}

// New creates an MCP server with every registered tool exposed. Operation
// dispatch stays inside the pipeline: the MCP layer passes arguments
// through untouched, including the "operation" field of consolidated
// tools.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcp:        server.NewMCPServer(cfg.Name, cfg.Version, server.WithToolCapabilities(false)),
		executor:   cfg.Executor,
		workingDir: cfg.WorkingDir,
		logger:     logger.With("component", "mcpserver"),
	}

	for _, desc := range cfg.Registry.Descriptors() {
		s.mcp.AddTool(
			mcp.NewToolWithRawSchema(desc.Name, desc.Description, desc.Schema),
			s.toolHandler(desc.Name),
		)
	}
	return s
}

// Serve runs the stdio transport until the client disconnects.
func (s *Server) Serve() error {
	s.logger.Info("mcp server starting on stdio")
	return server.ServeStdio(s.mcp)
}

// toolHandler adapts one registered tool to the MCP handler signature.
func (s *Server) toolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		call := tool.CallContext{
			CallID:     newCallID(),
			SessionID:  s.sessionID(ctx),
			WorkingDir: s.workingDir,
		}

		rec := s.executor.ExecuteTool(ctx, name, req.GetArguments(), call)
		if !rec.Success {
			return mcp.NewToolResultError(rec.Output.Content), nil
		}
		return mcp.NewToolResultText(rec.Output.Content), nil
	}
}

// sessionID derives the pipeline session id from the MCP client session,
// so grants and PTY sessions are scoped to one connection.
func (s *Server) sessionID(ctx context.Context) string {
	if cs := server.ClientSessionFromContext(ctx); cs != nil {
		return cs.SessionID()
	}
	return "mcp"
}

// newCallID generates a unique correlation id for one tool call.
func newCallID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "call-unknown"
	}
	return "call-" + hex.EncodeToString(buf[:])
}
