package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"csvjson/internal/etl"
)

const defaultRunLimit = 50

func (s *Server) registerConvertTools() {
	s.mcp.AddTool(mcp.NewTool("list_fields",
		mcp.WithDescription("List the fields kept in every converted JSON object, in output order"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListFields)

	s.mcp.AddTool(mcp.NewTool("preview_file",
		mcp.WithDescription("Read the header and first rows of a CSV/TSV file and show which fields it covers. Nothing is written."),
		mcp.WithString("path", mcp.Description("Absolute path of the input file"), mcp.Required()),
		mcp.WithNumber("maxRows", mcp.Description("Rows to preview (default 10)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handlePreviewFile)

	s.mcp.AddTool(mcp.NewTool("convert_files",
		mcp.WithDescription("Convert CSV files to JSON. Writes one <name>.json per input, or a single merged file tagged with source_file. Existing outputs are overwritten."),
		mcp.WithArray("files", mcp.Description("Input file paths, processed in order"), mcp.Required()),
		mcp.WithString("outputDir", mcp.Description("Directory for the JSON output (created if missing)"), mcp.Required()),
		mcp.WithBoolean("merge", mcp.Description("Write one merged file instead of one file per input")),
		mcp.WithString("mergedFileName", mcp.Description("Merged output name (default merged_data.json)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleConvertFiles)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List past conversion runs, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum runs to return (default 50)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListRuns)
}

func (s *Server) handleListFields(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.convert.Fields())
}

func (s *Server) handlePreviewFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	maxRows := 0
	if v, ok := args["maxRows"].(float64); ok {
		maxRows = int(v)
	}

	preview, err := s.convert.Preview(ctx, path, maxRows)
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", path, err)
	}
	return jsonResult(preview)
}

func (s *Server) handleConvertFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	files, err := stringList(args, "files")
	if err != nil {
		return nil, err
	}
	outputDir, _ := args["outputDir"].(string)
	merge, _ := args["merge"].(bool)
	mergedName, _ := args["mergedFileName"].(string)

	job := etl.ConversionJob{
		Files:          files,
		OutputDir:      outputDir,
		Merge:          merge,
		MergedFileName: mergedName,
	}
	result, err := s.convert.RunSync(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("convert files: %w", err)
	}
	s.logger.Info("convert_files done",
		zap.String("job", result.JobID),
		zap.String("status", result.Status))
	return jsonResult(result)
}

func (s *Server) handleListRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.runs == nil {
		return textResult("Run history is not available"), nil
	}
	limit := defaultRunLimit
	if v, ok := req.GetArguments()["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	runs, err := s.runs.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return jsonResult(runs)
}
