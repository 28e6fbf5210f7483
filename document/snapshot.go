package document

import "time"

// DocumentIDField is the synthetic key added to Snapshot.Data
const DocumentIDField = "document_id"

// Snapshot is one observed version of a document. It is never mutated after
// construction.
type Snapshot struct {
	ID         string
	Path       string // relative path, e.g. users/u1
	Fields     map[string]Value
	CreateTime time.Time
	UpdateTime time.Time
}

// NewSnapshot builds a snapshot for the document at path, copying fields
func NewSnapshot(path string, fields map[string]Value) Snapshot {
	return Snapshot{
		ID:     ID(path),
		Path:   path,
		Fields: copyFields(fields),
	}
}

// Get returns a single field
func (s Snapshot) Get(field string) (Value, bool) {
	v, ok := s.Fields[field]
	return v, ok
}

// Data returns the fields as native Go values plus the synthetic document_id
func (s Snapshot) Data() map[string]any {
	out := make(map[string]any, len(s.Fields)+1)
	for k, v := range s.Fields {
		out[k] = v.Native()
	}
	out[DocumentIDField] = s.ID
	return out
}

// Equal reports whether two snapshots hold the same document and fields.
// Timestamps are not compared.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.Path != o.Path || len(s.Fields) != len(o.Fields) {
		return false
	}
	for k, v := range s.Fields {
		ov, ok := o.Fields[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

func copyFields(fields map[string]Value) map[string]Value {
	out := make(map[string]Value, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
