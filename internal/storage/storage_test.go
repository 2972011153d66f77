package storage

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(pairs ...string) models.Record {
	var r models.Record
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

func TestAppendBlankOnEmptyStore(t *testing.T) {
	s := New()
	s.AppendBlank()

	require.Equal(t, 1, s.Len())
	r, ok := s.At(0)
	require.True(t, ok)
	for _, f := range r.Fields {
		assert.Empty(t, f.Value, f.Name)
	}
	assert.Equal(t, models.CanonicalFields, s.Columns())
}

func TestColumnsUnionFirstSeenOrder(t *testing.T) {
	s := New()
	assert.Empty(t, s.Columns())

	first := record("Chemical Name", "Ethanol", "CAS Number", "64-17-5")
	first.SourceImageID = "img-1"
	s.Append(first)
	assert.Equal(t, []string{"Chemical Name", "CAS Number"}, s.Columns())

	s.Append(record("Formula", "H2O", "Chemical Name", "Water"))
	assert.Equal(t, []string{"Chemical Name", "CAS Number", "Formula"}, s.Columns())

	s.Append(record("Hazard Class", "3"))
	assert.Equal(t, []string{"Chemical Name", "CAS Number", "Formula", "Hazard Class"}, s.Columns(),
		"a novel field extends the column set by exactly that field at the end")

	for _, col := range s.Columns() {
		assert.NotEqual(t, "imageId", col)
		assert.NotEqual(t, "img-1", col)
	}

	s.RemoveAt(2)
	assert.Equal(t, []string{"Chemical Name", "CAS Number", "Formula"}, s.Columns())
}

func TestRemoveAt(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		removed  bool
		expected []string
	}{
		{name: "first", index: 0, removed: true, expected: []string{"b", "c"}},
		{name: "middle", index: 1, removed: true, expected: []string{"a", "c"}},
		{name: "last", index: 2, removed: true, expected: []string{"a", "b"}},
		{name: "negative", index: -1, removed: false, expected: []string{"a", "b", "c"}},
		{name: "equal to length", index: 3, removed: false, expected: []string{"a", "b", "c"}},
		{name: "beyond length", index: 42, removed: false, expected: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			for _, name := range []string{"a", "b", "c"} {
				s.Append(record("Chemical Name", name))
			}

			assert.Equal(t, tt.removed, s.RemoveAt(tt.index))

			var names []string
			for _, r := range s.Records() {
				names = append(names, r.Value("Chemical Name"))
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestEditCommitChangesOnlyTargetedFields(t *testing.T) {
	s := New()
	s.Append(record("Chemical Name", "Ethanol", "CAS Number", "64-17-5", "Formula", "C2H6O"))
	s.Append(record("Chemical Name", "Acetone", "CAS Number", "67-64-1"))
	s.Append(record("Chemical Name", "Water"))
	before := s.Records()

	require.True(t, s.BeginEdit(1))
	require.True(t, s.UpdateEditField("CAS Number", "67-64-1 (verified)"))
	require.True(t, s.UpdateEditField("Location", "Cabinet B"))

	// scratch changes are invisible until commit
	r, _ := s.At(1)
	assert.Equal(t, before[1], r)

	require.True(t, s.CommitEdit())

	after := s.Records()
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, before[2], after[2])
	assert.Equal(t, "Acetone", after[1].Value("Chemical Name"))
	assert.Equal(t, "67-64-1 (verified)", after[1].Value("CAS Number"))
	assert.Equal(t, "Cabinet B", after[1].Value("Location"))
	assert.Equal(t, []string{"Chemical Name", "CAS Number", "Formula", "Location"}, s.Columns())

	_, _, editing := s.Editing()
	assert.False(t, editing)
}

func TestEditCancelLeavesRecordUnchanged(t *testing.T) {
	s := New()
	s.Append(record("Chemical Name", "Ethanol", "CAS Number", "64-17-5"))
	before := s.Records()

	require.True(t, s.BeginEdit(0))
	s.UpdateEditField("Chemical Name", "Methanol")
	s.CancelEdit()

	assert.Equal(t, before, s.Records())
	assert.False(t, s.CommitEdit(), "nothing to commit after cancel")
	assert.Equal(t, before, s.Records())
}

func TestBeginEditReplacesPriorEdit(t *testing.T) {
	s := New()
	s.Append(record("Chemical Name", "a"))
	s.Append(record("Chemical Name", "b"))

	require.True(t, s.BeginEdit(0))
	s.UpdateEditField("Chemical Name", "discarded")
	require.True(t, s.BeginEdit(1))

	index, scratch, ok := s.Editing()
	require.True(t, ok)
	assert.Equal(t, 1, index)
	assert.Equal(t, "b", scratch.Value("Chemical Name"))

	s.UpdateEditField("Chemical Name", "B")
	require.True(t, s.CommitEdit())

	records := s.Records()
	assert.Equal(t, "a", records[0].Value("Chemical Name"))
	assert.Equal(t, "B", records[1].Value("Chemical Name"))
}

func TestEditStaleIndexIsNoop(t *testing.T) {
	s := New()
	s.Append(record("Chemical Name", "a"))
	s.Append(record("Chemical Name", "b"))

	assert.False(t, s.BeginEdit(2))
	assert.False(t, s.BeginEdit(-1))
	assert.False(t, s.UpdateEditField("x", "y"), "no edit in progress")

	require.True(t, s.BeginEdit(1))
	s.UpdateEditField("Chemical Name", "changed")
	s.RemoveAt(0)
	// index 1 no longer exists
	assert.False(t, s.CommitEdit())
	require.Equal(t, 1, s.Len())
	r, _ := s.At(0)
	assert.Equal(t, "b", r.Value("Chemical Name"))
}

func TestRemovingEditedRecordDropsEdit(t *testing.T) {
	s := New()
	s.Append(record("Chemical Name", "a"))
	require.True(t, s.BeginEdit(0))
	s.RemoveAt(0)

	_, _, ok := s.Editing()
	assert.False(t, ok)
	assert.False(t, s.CommitEdit())
	assert.Equal(t, 0, s.Len())
}

func TestRemoveBySource(t *testing.T) {
	s := New()
	a := record("Chemical Name", "a")
	a.SourceImageID = "img-1"
	b := record("Chemical Name", "b")
	c := record("Chemical Name", "c")
	c.SourceImageID = "img-2"
	s.Append(a)
	s.Append(b)
	s.Append(c)

	assert.Equal(t, 0, s.RemoveBySource(""))
	assert.Equal(t, 1, s.RemoveBySource("img-1"))
	assert.Equal(t, 0, s.RemoveBySource("img-1"))

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].Value("Chemical Name"))
	assert.Equal(t, "c", records[1].Value("Chemical Name"))

	assert.Equal(t, 0, s.RemoveBySources())
	assert.Equal(t, 0, s.RemoveBySources("img-9", ""))
	assert.Equal(t, 1, s.RemoveBySources("img-2", "img-9"))
	require.Equal(t, 1, s.Len())
}

func TestRemoveBySourcesKeepsOtherImages(t *testing.T) {
	s := New()
	for _, src := range []string{"old-1", "new-1", "", "old-2", "new-2"} {
		r := record("Chemical Name", "from "+src)
		r.SourceImageID = src
		s.Append(r)
	}
	s.BeginEdit(3)

	assert.Equal(t, 2, s.RemoveBySources("new-1", "new-2"))

	records := s.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "old-1", records[0].SourceImageID)
	assert.Equal(t, "", records[1].SourceImageID)
	assert.Equal(t, "old-2", records[2].SourceImageID)
	_, _, editing := s.Editing()
	assert.True(t, editing, "an edit on a surviving record is kept")
}

func TestClear(t *testing.T) {
	s := New()
	s.AppendBlank()
	s.BeginEdit(0)
	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Columns())
	_, _, ok := s.Editing()
	assert.False(t, ok)
}

func TestRecordsAreCopies(t *testing.T) {
	s := New()
	original := record("Chemical Name", "a")
	s.Append(original)
	original.Set("Chemical Name", "mutated")

	records := s.Records()
	records[0].Set("Chemical Name", "also mutated")

	r, _ := s.At(0)
	assert.Equal(t, "a", r.Value("Chemical Name"))
}

func TestSnapshotRows(t *testing.T) {
	s := New()
	s.Append(record("Chemical Name", "Ethanol", "CAS Number", "64-17-5"))
	s.Append(record("Formula", "H2O"))

	snap := s.Snapshot()
	assert.Equal(t, []string{"Chemical Name", "CAS Number", "Formula"}, snap.Columns)
	assert.Equal(t, [][]string{
		{"Ethanol", "64-17-5", models.MissingPlaceholder},
		{models.MissingPlaceholder, models.MissingPlaceholder, "H2O"},
	}, snap.Rows())
}

func TestYAMLRoundTrip(t *testing.T) {
	s := New()
	extracted := record("Chemical Name", "Ethanol", "Purity", "99.5%")
	extracted.SourceImageID = "img-1"
	s.Append(extracted)
	s.Append(record("Zeta", "z", "Alpha", "a"))

	var buf bytes.Buffer
	require.NoError(t, s.SaveYAML(&buf))

	loaded := New()
	loaded.AppendBlank()
	require.NoError(t, loaded.LoadYAML(&buf))

	assert.Equal(t, s.Records(), loaded.Records())
	assert.Equal(t, []string{"Chemical Name", "Purity", "Zeta", "Alpha"}, loaded.Columns())
}

func TestLoadYAMLEmpty(t *testing.T) {
	s := New()
	s.AppendBlank()
	require.NoError(t, s.LoadYAML(strings.NewReader("")))
	assert.Equal(t, 0, s.Len())

	assert.Error(t, s.LoadYAML(strings.NewReader("records: [unclosed")))
}
