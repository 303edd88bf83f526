package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"csvjson/internal/etl"
)

// ── Delimited File Sources ──────────────────────────────────
// Read records from a local delimited text file whose first line is the
// header. Values are passed through as raw strings.

type delimitedFileSource struct {
	spec  etl.SourceSpec
	comma rune
}

func init() {
	etl.RegisterSource(&delimitedFileSource{
		comma: ',',
		spec: etl.SourceSpec{
			Type:       "csv_file",
			Label:      "CSV File",
			Extensions: []string{".csv", ".txt"},
			ConfigFields: []etl.ConfigField{
				{Key: "filePath", Label: "File Path", Type: "file", Required: true, Help: "Absolute path to the CSV file"},
				{Key: "delimiter", Label: "Delimiter", Type: "string", Default: ",", Help: "Column delimiter (default: comma)"},
			},
		},
	})
	etl.RegisterSource(&delimitedFileSource{
		comma: '\t',
		spec: etl.SourceSpec{
			Type:       "tsv_file",
			Label:      "TSV File",
			Extensions: []string{".tsv", ".tab"},
			ConfigFields: []etl.ConfigField{
				{Key: "filePath", Label: "File Path", Type: "file", Required: true, Help: "Absolute path to the TSV file"},
				{Key: "delimiter", Label: "Delimiter", Type: "string", Default: "\\t", Help: "Column delimiter (default: tab)"},
			},
		},
	})
}

func (s *delimitedFileSource) Spec() etl.SourceSpec { return s.spec }

func (s *delimitedFileSource) Discover(ctx context.Context, cfg etl.SourceConfig) (*etl.Schema, error) {
	f, reader, err := s.open(cfg)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &etl.Schema{}, nil
	}
	if err != nil {
		return nil, readError("parse header", 1, err)
	}

	schema := &etl.Schema{Fields: make([]etl.Field, len(headers))}
	for i, h := range headers {
		schema.Fields[i] = etl.Field{Name: h, Type: "text"}
	}
	return schema, nil
}

// Read streams one record per data line. A short line yields "" for its
// missing trailing columns rather than a null. Bytes that are not valid
// UTF-8 fail the read instead of being replaced.
func (s *delimitedFileSource) Read(ctx context.Context, cfg etl.SourceConfig) (<-chan etl.Record, <-chan error) {
	out := make(chan etl.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		f, reader, err := s.open(cfg)
		if err != nil {
			errCh <- err
			return
		}
		defer f.Close()

		headers, err := reader.Read()
		if errors.Is(err, io.EOF) {
			// No header line: the file holds zero rows.
			return
		}
		if err != nil {
			errCh <- readError("parse header", 1, err)
			return
		}

		line := 2 // first data line, reported on invalid input
		for {
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errCh <- readError("parse csv", line, err)
				return
			}
			if pos, _ := reader.FieldPos(0); pos > 0 {
				line = pos + 1
			}

			rec := etl.NewRecord()
			for j, h := range headers {
				if j < len(row) {
					rec.Set(h, row[j])
				} else {
					rec.Set(h, "")
				}
			}
			select {
			case out <- rec:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return out, errCh
}

// readError wraps a reader failure, naming the line for invalid UTF-8.
func readError(op string, line int, err error) error {
	if errors.Is(err, encoding.ErrInvalidUTF8) {
		return fmt.Errorf("%s: invalid UTF-8 on line %d: %w", op, line, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// parseDelimiter accepts exactly one character, or the two-character
// escape \t for tab.
func parseDelimiter(delim string) (rune, error) {
	if delim == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(delim)
	if r == utf8.RuneError || size != len(delim) {
		return 0, fmt.Errorf("delimiter %q must be a single character", delim)
	}
	return r, nil
}

// open returns the file and a csv reader over its BOM-stripped text.
// Input must be UTF-8. The caller closes the file.
func (s *delimitedFileSource) open(cfg etl.SourceConfig) (*os.File, *csv.Reader, error) {
	filePath, _ := cfg["filePath"].(string)
	if filePath == "" {
		return nil, nil, fmt.Errorf("filePath is required")
	}

	comma := s.comma
	if delim, ok := cfg["delimiter"].(string); ok && delim != "" {
		r, err := parseDelimiter(delim)
		if err != nil {
			return nil, nil, err
		}
		comma = r
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}

	// Validate before stripping the BOM: the UTF-8 decoder BOMOverride
	// switches to would otherwise replace bad bytes with U+FFFD.
	validated := transform.NewReader(f, encoding.UTF8Validator)
	decoded := transform.NewReader(validated, unicode.BOMOverride(transform.Nop))
	reader := csv.NewReader(decoded)
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	return f, reader, nil
}
