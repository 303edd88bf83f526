package etl

import (
	"bytes"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ── Record ─────────────────────────────────────────────────
// Common intermediate data format.
// Sources emit Records keyed by header name, the projector narrows them,
// and destinations serialise them. Key order is preserved end to end.

// RequiredFields is the fixed allow-list of columns that survive into JSON.
var RequiredFields = []string{
	"name", "address_1", "state", "city",
	"postal_code", "country", "gender",
	"phone", "ssn", "ethnicity",
}

// SourceFileField is injected into every merged record.
const SourceFileField = "source_file"

// Field describes a single column in a dataset.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // always "text": values are never coerced
}

// Schema describes the shape of records coming from a source.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldNames returns an ordered list of field names.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Record is a single row of data flowing through the pipeline.
// Values are the raw strings read from the source.
type Record struct {
	Data *orderedmap.OrderedMap[string, string]
}

// NewRecord returns an empty record.
func NewRecord() Record {
	return Record{Data: orderedmap.New[string, string]()}
}

// Set stores value under key. An existing key keeps its position.
func (r Record) Set(key, value string) {
	r.Data.Set(key, value)
}

// Get returns the value for key and whether it exists.
func (r Record) Get(key string) (string, bool) {
	if r.Data == nil {
		return "", false
	}
	return r.Data.Get(key)
}

// Len returns the number of fields in the record.
func (r Record) Len() int {
	if r.Data == nil {
		return 0
	}
	return r.Data.Len()
}

// Keys returns the field names in insertion order.
func (r Record) Keys() []string {
	if r.Data == nil {
		return nil
	}
	keys := make([]string, 0, r.Data.Len())
	for pair := r.Data.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// MarshalJSON writes the record as a JSON object in field order.
// HTML characters are not escaped.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	if r.Data != nil {
		for pair := r.Data.Oldest(); pair != nil; pair = pair.Next() {
			if pair != r.Data.Oldest() {
				buf.WriteByte(',')
			}
			if err := enc.Encode(pair.Key); err != nil {
				return nil, err
			}
			buf.Truncate(buf.Len() - 1) // Encode appends a newline
			buf.WriteByte(':')
			if err := enc.Encode(pair.Value); err != nil {
				return nil, err
			}
			buf.Truncate(buf.Len() - 1)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of string values, keeping key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	r.Data = orderedmap.New[string, string]()
	return r.Data.UnmarshalJSON(data)
}
