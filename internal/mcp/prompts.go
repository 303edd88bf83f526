package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("convert_folder",
		mcp.WithPromptDescription("Walk through previewing and converting a set of CSV files"),
		mcp.WithArgument("inputDir",
			mcp.ArgumentDescription("Directory holding the CSV files"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("outputDir",
			mcp.ArgumentDescription("Directory for the JSON output"),
			mcp.RequiredArgument(),
		),
	), s.handleConvertFolderPrompt)
}

func (s *Server) handleConvertFolderPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	inputDir := req.Params.Arguments["inputDir"]
	outputDir := req.Params.Arguments["outputDir"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Convert the CSV files in %s", inputDir),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Convert the CSV files in "%s" to JSON in "%s". Follow these steps:

1. Call list_fields to see which columns are kept (%s)
2. Call preview_file on each CSV and report any file that matches none of those fields
3. Ask whether the files should be merged into one JSON file tagged with source_file
4. Call convert_files with the chosen files, outputDir and merge flag
5. Summarize the result: files converted, rows written, and any per-file errors`,
						inputDir, outputDir, strings.Join(s.convert.Fields(), ", ")),
				},
			},
		},
	}, nil
}
