package storage

import (
	"fmt"
	"io"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
	"gopkg.in/yaml.v3"
)

// Snapshot is a consistent view of the store for rendering and export
type Snapshot struct {
	Columns []string        `yaml:"columns"`
	Records []models.Record `yaml:"records"`
}

// Rows renders every record against the column set; missing fields are
// rendered as models.MissingPlaceholder
func (s Snapshot) Rows() [][]string {
	rows := make([][]string, len(s.Records))
	for i, r := range s.Records {
		row := make([]string, len(s.Columns))
		for j, col := range s.Columns {
			row[j] = r.Value(col)
		}
		rows[i] = row
	}
	return rows
}

// Snapshot copies records and derives their columns under one lock
func (s *RecordStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.Record, len(s.records))
	for i, r := range s.records {
		records[i] = r.Clone()
	}
	return Snapshot{Columns: columns(s.records), Records: records}
}

// SaveYAML writes the records so a later run can continue curating them
func (s *RecordStore) SaveYAML(w io.Writer) error {
	snap := s.Snapshot()

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&snap); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}

// LoadYAML replaces the store contents with records previously saved by SaveYAML
func (s *RecordStore) LoadYAML(r io.Reader) error {
	var snap Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		if err == io.EOF {
			snap = Snapshot{}
		} else {
			return fmt.Errorf("failed to unmarshal YAML: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = snap.Records
	s.edit = nil
	return nil
}
