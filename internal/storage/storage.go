package storage

import (
	"sync"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
)

// pendingEdit is the scratch copy of the record under edit
type pendingEdit struct {
	index   int
	scratch models.Record
}

// RecordStore holds the ordered inventory. It is the only writer of records.
// Records are addressed by position; operations naming a position that no
// longer exists are silent no-ops.
type RecordStore struct {
	records []models.Record
	edit    *pendingEdit
	mu      sync.RWMutex
}

func New() *RecordStore {
	return &RecordStore{}
}

// Append adds a record at the tail
func (s *RecordStore) Append(record models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record.Clone())
}

// AppendBlank adds a record holding every canonical field, all empty
func (s *RecordStore) AppendBlank() {
	s.Append(models.BlankRecord(""))
}

// AppendManual adds a canonical record seeded with a chemical name
func (s *RecordStore) AppendManual(name string) models.Record {
	r := models.BlankRecord(name)
	s.Append(r)
	return r
}

// RemoveAt deletes the record at index, reporting whether anything was removed.
// Removing the record under edit discards the pending edit.
func (s *RecordStore) RemoveAt(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.records) {
		return false
	}
	s.records = append(s.records[:index], s.records[index+1:]...)
	if s.edit != nil && s.edit.index == index {
		s.edit = nil
	}
	return true
}

// RemoveBySource deletes every record extracted from the given image
func (s *RecordStore) RemoveBySource(imageID string) int {
	return s.RemoveBySources(imageID)
}

// RemoveBySources deletes every record extracted from one of the given
// images. Records from other images, and blank, manual and looked-up
// records, are kept.
func (s *RecordStore) RemoveBySources(imageIDs ...string) int {
	ids := make(map[string]bool, len(imageIDs))
	for _, id := range imageIDs {
		if id != "" {
			ids[id] = true
		}
	}
	if len(ids) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	removed := 0
	for i, r := range s.records {
		if ids[r.SourceImageID] {
			removed++
			if s.edit != nil && s.edit.index == i {
				s.edit = nil
			}
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return removed
}

// BeginEdit copies the record at index into the pending edit, replacing any
// uncommitted one
func (s *RecordStore) BeginEdit(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.records) {
		return false
	}
	s.edit = &pendingEdit{index: index, scratch: s.records[index].Clone()}
	return true
}

// UpdateEditField changes the scratch copy only
func (s *RecordStore) UpdateEditField(name, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.edit == nil {
		return false
	}
	s.edit.scratch.Set(name, value)
	return true
}

// CommitEdit writes the scratch copy back to the captured position and
// clears the pending edit. It is a no-op when that position is gone.
func (s *RecordStore) CommitEdit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.edit == nil {
		return false
	}
	edit := s.edit
	s.edit = nil
	if edit.index >= len(s.records) {
		return false
	}
	s.records[edit.index] = edit.scratch
	return true
}

// CancelEdit discards the pending edit
func (s *RecordStore) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edit = nil
}

// Editing returns the position and scratch copy of the pending edit
func (s *RecordStore) Editing() (int, models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.edit == nil {
		return -1, models.Record{}, false
	}
	return s.edit.index, s.edit.scratch.Clone(), true
}

// Columns returns the union of field names across all records in first-seen order
func (s *RecordStore) Columns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return columns(s.records)
}

func columns(records []models.Record) []string {
	seen := make(map[string]bool)
	result := []string{}
	for _, r := range records {
		for _, f := range r.Fields {
			if !seen[f.Name] {
				seen[f.Name] = true
				result = append(result, f.Name)
			}
		}
	}
	return result
}

func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *RecordStore) At(index int) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.records) {
		return models.Record{}, false
	}
	return s.records[index].Clone(), true
}

// Records returns a deep copy of every record in order
func (s *RecordStore) Records() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Record, len(s.records))
	for i, r := range s.records {
		result[i] = r.Clone()
	}
	return result
}

// Clear empties the store and drops any pending edit
func (s *RecordStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.edit = nil
}
