package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"csvjson/internal/etl"
	"csvjson/internal/service"
)

// RunLister reads conversion history.
type RunLister interface {
	ListRuns(limit int) ([]etl.RunLog, error)
}

// Server is the MCP server for the converter.
// It exposes the conversion service as tools so agents can run jobs headlessly.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger

	// Services (injected from app layer)
	convert *service.ConversionService
	runs    RunLister
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Convert *service.ConversionService
	Runs    RunLister // nil disables history
	Logger  *zap.Logger
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger:  logger.Named("mcp"),
		convert: deps.Convert,
		runs:    deps.Runs,
	}

	s.mcp = server.NewMCPServer(
		"csvjson-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerConvertTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }
