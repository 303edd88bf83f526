package etl

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// PreviewResult is what the UI shows before a conversion: the header, which
// allow-listed fields the file covers, and the first projected rows.
type PreviewResult struct {
	File          string   `json:"file"`
	SourceType    string   `json:"sourceType"`
	Schema        *Schema  `json:"schema"`
	MatchedFields []string `json:"matchedFields"`
	MissingFields []string `json:"missingFields"`
	Records       []Record `json:"records"`
}

// RunLog is a historical record of a conversion run.
type RunLog struct {
	ID          string    `json:"id"`
	JobID       string    `json:"jobId"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Status      string    `json:"status"`
	Merge       bool      `json:"merge"`
	OutputDir   string    `json:"outputDir"`
	FilesTotal  int       `json:"filesTotal"`
	FilesFailed int       `json:"filesFailed"`
	RowsWritten int       `json:"rowsWritten"`
	Outputs     []string  `json:"outputs"`
	Errors      []string  `json:"errors,omitempty"`
}

// NewRunLog converts a finished result into a storable run log.
func NewRunLog(r *ConversionResult) *RunLog {
	return &RunLog{
		JobID:       r.JobID,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		Status:      r.Status,
		Merge:       r.Merge,
		OutputDir:   r.OutputDir,
		FilesTotal:  r.FilesTotal,
		FilesFailed: r.FilesFailed,
		RowsWritten: r.RowsWritten,
		Outputs:     r.Outputs,
		Errors:      r.Errors,
	}
}

// Preview reads the header and up to maxRows projected rows of one file.
// Rows are projected the non-merge way.
func (c *Converter) Preview(ctx context.Context, path string, maxRows int) (*PreviewResult, error) {
	source, err := SourceForPath(path)
	if err != nil {
		return nil, err
	}
	cfg := SourceConfig{"filePath": path}

	schema, err := source.Discover(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	present := make(map[string]bool, len(schema.Fields))
	for _, f := range schema.Fields {
		present[f.Name] = true
	}
	result := &PreviewResult{
		File:          filepath.Base(path),
		SourceType:    source.Spec().Type,
		Schema:        schema,
		MatchedFields: []string{},
		MissingFields: []string{},
		Records:       []Record{},
	}
	for _, f := range c.Fields {
		if present[f] {
			result.MatchedFields = append(result.MatchedFields, f)
		} else {
			result.MissingFields = append(result.MissingFields, f)
		}
	}

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	recCh, errCh := source.Read(readCtx, cfg)

	for rec := range recCh {
		if len(result.Records) >= maxRows {
			break
		}
		result.Records = append(result.Records, Project(rec, c.Fields, false, ""))
	}

	// Stop the reader and drain what it already buffered.
	cancel()
	go func() {
		for range recCh {
		}
	}()
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return result, err
	}
	return result, nil
}
