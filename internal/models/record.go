package models

import (
	"encoding/json"
)

// Field is one named value of a record
type Field struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Record is one inventory entry. Records carry no fixed schema: each one holds
// whatever fields the model (or the user) supplied, in insertion order.
type Record struct {
	Fields []Field `yaml:"fields"`

	// SourceImageID points at the ImageItem the record was extracted from.
	// It is empty for blank, manual and looked-up records.
	SourceImageID string `yaml:"source_image_id,omitempty"`
}

// NewRecord builds a record from fields, later duplicates overwriting earlier ones
func NewRecord(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// BlankRecord returns a record with every canonical field empty except the name
func BlankRecord(name string) Record {
	r := Record{Fields: make([]Field, 0, len(CanonicalFields))}
	for _, f := range CanonicalFields {
		r.Fields = append(r.Fields, Field{Name: f})
	}
	r.Fields[0].Value = name
	return r
}

// Get returns the value of the named field
func (r Record) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Value returns the named field or MissingPlaceholder
func (r Record) Value(name string) string {
	if v, ok := r.Get(name); ok {
		return v
	}
	return MissingPlaceholder
}

// Set replaces the named field in place, or appends it when it is new
func (r *Record) Set(name, value string) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
}

// Names returns the field names in order
func (r Record) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

// Clone returns a deep copy
func (r Record) Clone() Record {
	c := Record{SourceImageID: r.SourceImageID}
	if r.Fields != nil {
		c.Fields = make([]Field, len(r.Fields))
		copy(c.Fields, r.Fields)
	}
	return c
}

// Map returns the fields as a plain map. Order is lost.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		m[f.Name] = f.Value
	}
	return m
}

// MarshalJSON renders the record as an object with keys in field order,
// which is how the web client consumes rows.
func (r Record) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, f := range r.Fields {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	buf = append(buf, '}')
	return buf, nil
}
