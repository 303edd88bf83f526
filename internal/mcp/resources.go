package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"csvjson/internal/etl"
)

const (
	fieldsURI  = "csvjson://fields"
	sourcesURI = "csvjson://sources"
)

func (s *Server) registerResources() {
	// ── csvjson://fields ───────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		fieldsURI,
		"Output Fields",
		mcp.WithMIMEType("application/json"),
	), s.handleFieldsResource)

	// ── csvjson://sources ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		sourcesURI,
		"Input Formats",
		mcp.WithMIMEType("application/json"),
	), s.handleSourcesResource)
}

func (s *Server) handleFieldsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(fieldsURI, s.convert.Fields())
}

func (s *Server) handleSourcesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(sourcesURI, etl.ListSources())
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
