package etl

// ── Transformer ────────────────────────────────────────────
// Transformers modify records in-flight between source and destination.
// Each takes a record and returns a (possibly new) record and a boolean
// indicating whether to keep it.

// Transformer processes a single record.
// Returns (transformed record, keep). If keep is false, the record is dropped.
type Transformer interface {
	Transform(Record) (Record, bool)
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(Record) (Record, bool)

func (f TransformerFunc) Transform(r Record) (Record, bool) { return f(r) }

// ── Row Projector ──────────────────────────────────────────

// Project returns a new record holding only the allow-listed fields of row,
// in allow-list order.
//
// Without merge, fields missing from row are omitted. With merge, every
// field is present ("" when missing) and SourceFileField is appended with
// sourceFile. row is never modified.
func Project(row Record, fields []string, merge bool, sourceFile string) Record {
	out := NewRecord()
	for _, f := range fields {
		v, ok := row.Get(f)
		if ok || merge {
			out.Set(f, v)
		}
	}
	if merge {
		out.Set(SourceFileField, sourceFile)
	}
	return out
}

// ProjectTransform keeps only the allow-listed fields.
type ProjectTransform struct {
	Fields     []string
	Merge      bool
	SourceFile string
}

func (t *ProjectTransform) Transform(r Record) (Record, bool) {
	return Project(r, t.Fields, t.Merge, t.SourceFile), true
}

// ── Helpers ────────────────────────────────────────────────

// ApplyTransformers runs a chain of transformers on a record.
func ApplyTransformers(r Record, ts []Transformer) (Record, bool) {
	for _, t := range ts {
		var keep bool
		r, keep = t.Transform(r)
		if !keep {
			return r, false
		}
	}
	return r, true
}
