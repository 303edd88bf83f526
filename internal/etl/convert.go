package etl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ── ConversionJob ──────────────────────────────────────────
// Orchestrates: source.Read → projector → destination.Write, per input file.

// DefaultMergedFileName is used when a merge job names no output file.
const DefaultMergedFileName = "merged_data.json"

// ConversionJob holds the configuration for a single conversion run.
type ConversionJob struct {
	ID             string   `json:"id"`
	Files          []string `json:"files"`
	OutputDir      string   `json:"outputDir"`
	Merge          bool     `json:"merge"`
	MergedFileName string   `json:"mergedFileName,omitempty"`
	Delimiter      string   `json:"delimiter,omitempty"`
}

// Run statuses.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// ConversionResult is the outcome of running a conversion job.
type ConversionResult struct {
	JobID          string        `json:"jobId"`
	Status         string        `json:"status"`
	Merge          bool          `json:"merge"`
	OutputDir      string        `json:"outputDir"`
	FilesTotal     int           `json:"filesTotal"`
	FilesSucceeded int           `json:"filesSucceeded"`
	FilesFailed    int           `json:"filesFailed"`
	RowsRead       int           `json:"rowsRead"`
	RowsWritten    int           `json:"rowsWritten"`
	Outputs        []string      `json:"outputs"`
	Errors         []string      `json:"errors,omitempty"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     time.Time     `json:"finishedAt"`
	Duration       time.Duration `json:"duration"`
}

// FileError reports a failure reading or writing one file.
type FileError struct {
	File string // base name shown to the user
	Op   string // "read" | "write"
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.File, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// ── Updates ────────────────────────────────────────────────
// The converter never touches UI state. It reports through a channel that
// exactly one consumer drains.

// UpdateKind tags an Update.
type UpdateKind string

const (
	UpdateStatus    UpdateKind = "status"
	UpdateFileError UpdateKind = "file_error"
	UpdateDone      UpdateKind = "done"
)

// Update is one message from the conversion worker.
type Update struct {
	Kind    UpdateKind
	Message string
	Percent float64
	Index   int // 1-based file position, 0 when not file-specific
	Total   int
	File    string
	Err     error
	Result  *ConversionResult
}

// ── Converter ──────────────────────────────────────────────

// Converter runs conversion jobs using the registered sources and a destination.
type Converter struct {
	Dest   Destination
	Fields []string
}

// NewConverter returns a converter writing JSON files for the fixed allow-list.
func NewConverter() *Converter {
	return &Converter{
		Dest:   &JSONFileWriter{Indent: DefaultIndent},
		Fields: RequiredFields,
	}
}

// Run executes a conversion job end-to-end. A failure on one file is
// reported as an UpdateFileError and the next file is processed.
// updates may be nil; Run never closes it.
func (c *Converter) Run(ctx context.Context, job *ConversionJob, updates chan<- Update) *ConversionResult {
	start := time.Now()
	total := len(job.Files)
	result := &ConversionResult{
		JobID:      job.ID,
		Merge:      job.Merge,
		OutputDir:  job.OutputDir,
		FilesTotal: total,
		Outputs:    []string{},
		StartedAt:  start,
	}

	send := func(u Update) {
		if updates != nil {
			updates <- u
		}
	}
	fail := func(fe *FileError) {
		result.Errors = append(result.Errors, fe.Error())
		send(Update{Kind: UpdateFileError, File: fe.File, Err: fe, Total: total})
	}

	if err := os.MkdirAll(job.OutputDir, 0755); err != nil {
		fail(&FileError{File: job.OutputDir, Op: "write", Err: err})
	}

	var merged []Record
	written := make(map[string]bool) // output paths already listed
	for i, path := range job.Files {
		name := filepath.Base(path)
		send(Update{
			Kind:    UpdateStatus,
			Message: fmt.Sprintf("Processing file %d/%d: %s", i+1, total, name),
			Percent: float64(i) / float64(total) * 100,
			Index:   i + 1,
			Total:   total,
			File:    name,
		})

		records, err := c.readFile(ctx, path, job.Delimiter, job.Merge, name)
		if err != nil {
			result.FilesFailed++
			fail(&FileError{File: name, Op: "read", Err: err})
			continue
		}
		result.RowsRead += len(records)

		if job.Merge {
			merged = append(merged, records...)
			result.FilesSucceeded++
			continue
		}

		target := filepath.Join(job.OutputDir, strings.TrimSuffix(name, filepath.Ext(name))+".json")
		n, err := c.Dest.Write(ctx, target, records)
		if err != nil {
			result.FilesFailed++
			fail(&FileError{File: name, Op: "write", Err: err})
			continue
		}
		result.FilesSucceeded++
		result.RowsWritten += n
		// Inputs sharing a base name overwrite the same output; the later one wins.
		if !written[target] {
			written[target] = true
			result.Outputs = append(result.Outputs, target)
		}
	}

	if job.Merge {
		mergedName := job.MergedFileName
		if mergedName == "" {
			mergedName = DefaultMergedFileName
		}
		target := filepath.Join(job.OutputDir, mergedName)
		n, err := c.Dest.Write(ctx, target, merged)
		if err != nil {
			result.FilesFailed = total
			result.FilesSucceeded = 0
			fail(&FileError{File: mergedName, Op: "write", Err: err})
		} else {
			result.RowsWritten = n
			result.Outputs = append(result.Outputs, target)
			send(Update{
				Kind:    UpdateStatus,
				Message: fmt.Sprintf("Merged %d files into %s", total, mergedName),
				Percent: 100,
				Total:   total,
				File:    mergedName,
			})
		}
	}

	switch {
	case result.FilesFailed == 0 && len(result.Errors) == 0:
		result.Status = StatusSuccess
	case result.FilesSucceeded == 0:
		result.Status = StatusError
	default:
		result.Status = StatusPartial
	}
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(start)

	send(Update{Kind: UpdateStatus, Message: "Conversion complete", Percent: 100, Total: total})
	send(Update{Kind: UpdateDone, Total: total, Result: result})
	return result
}

// readFile reads every row of one input and projects it. Rows are returned
// only when the whole file was read.
func (c *Converter) readFile(ctx context.Context, path, delimiter string, merge bool, name string) ([]Record, error) {
	source, err := SourceForPath(path)
	if err != nil {
		return nil, err
	}

	cfg := SourceConfig{"filePath": path}
	if delimiter != "" {
		cfg["delimiter"] = delimiter
	}

	transformers := []Transformer{
		&ProjectTransform{Fields: c.Fields, Merge: merge, SourceFile: name},
	}

	recCh, errCh := source.Read(ctx, cfg)
	records := []Record{}
	for rec := range recCh {
		projected, keep := ApplyTransformers(rec, transformers)
		if keep {
			records = append(records, projected)
		}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return records, nil
}
