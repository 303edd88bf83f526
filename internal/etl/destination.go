package etl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// ── Destination ────────────────────────────────────────────
// A Destination writes records into a target.
// For now, the only destination is a JSON array file.

// Destination writes records to a target (a file path for JSONFileWriter).
type Destination interface {
	Write(ctx context.Context, target string, records []Record) (int, error)
}

// DefaultIndent matches a four-space pretty-printed JSON array.
const DefaultIndent = "    "

// ── JSON File Destination ──────────────────────────────────

// JSONFileWriter writes records as one indented JSON array per file.
// Non-ASCII text and HTML characters in keys are written unescaped.
// Existing files are overwritten.
type JSONFileWriter struct {
	Indent string
}

func (w *JSONFileWriter) Write(ctx context.Context, target string, records []Record) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	if records == nil {
		records = []Record{}
	}
	indent := w.Indent
	if indent == "" {
		indent = DefaultIndent
	}

	f, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}

	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(records); err != nil {
		f.Close()
		return 0, fmt.Errorf("encode json: %w", err)
	}
	if err := buf.Flush(); err != nil {
		f.Close()
		return 0, fmt.Errorf("flush output: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close output: %w", err)
	}
	return len(records), nil
}
