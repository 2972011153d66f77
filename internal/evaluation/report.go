package evaluation

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
	"gopkg.in/yaml.v3"
)

// FieldStats aggregates the matches of one column across the inventory
type FieldStats struct {
	Field         string  `yaml:"field"`
	ExactMatches  int     `yaml:"exact"`
	FuzzyMatches  int     `yaml:"fuzzy"`
	NoMatches     int     `yaml:"no_match"`
	MissingFields int     `yaml:"missing"`
	ExtraFields   int     `yaml:"extra"`
	AverageScore  float64 `yaml:"average_score"`

	scores []float64
}

func (s *FieldStats) add(m FieldMatch) {
	switch m.Method {
	case MethodExact:
		s.ExactMatches++
	case MethodSubstring, MethodFuzzyHigh, MethodFuzzyMedium:
		s.FuzzyMatches++
	case MethodNoMatch:
		s.NoMatches++
	case MethodActualMissing:
		s.MissingFields++
	case MethodExpectedMissing:
		s.ExtraFields++
	}
	if m.Scored() {
		s.scores = append(s.scores, m.Score)
	}
}

// Report is the accuracy of a candidate inventory against a reference one
type Report struct {
	Reference string    `yaml:"reference,omitempty"`
	Candidate string    `yaml:"candidate,omitempty"`
	Date      time.Time `yaml:"date"`

	Records        int `yaml:"records"`
	MissingRecords int `yaml:"missing_records"`
	ExtraRecords   int `yaml:"extra_records"`

	Fields          []FieldStats       `yaml:"fields"`
	OverallAccuracy float64            `yaml:"overall_accuracy"`
	Results         []RecordComparison `yaml:"results"`
}

// Evaluate compares two inventories row by row. Rows pair up by position, the
// same way records are identified everywhere else. When fields is empty the
// reference inventory's columns are compared.
func Evaluate(reference, candidate []models.Record, fields []string) *Report {
	if len(fields) == 0 {
		fields = referenceColumns(reference)
	}

	r := &Report{
		Date:    time.Now(),
		Records: len(reference),
		Fields:  make([]FieldStats, len(fields)),
		Results: make([]RecordComparison, 0, len(reference)),
	}
	for i, f := range fields {
		r.Fields[i].Field = f
	}
	if len(candidate) > len(reference) {
		r.ExtraRecords = len(candidate) - len(reference)
	}

	var total float64
	var scored int
	for i, expected := range reference {
		var actual models.Record
		missing := i >= len(candidate)
		if !missing {
			actual = candidate[i]
		} else {
			r.MissingRecords++
		}

		rc := CompareRecords(i, expected, actual, fields)
		rc.Missing = missing
		for j, m := range rc.Fields {
			r.Fields[j].add(m)
			if m.Scored() {
				total += m.Score
				scored++
			}
		}
		r.Results = append(r.Results, rc)
	}

	for i := range r.Fields {
		r.Fields[i].AverageScore = average(r.Fields[i].scores)
	}
	if scored > 0 {
		r.OverallAccuracy = total / float64(scored)
	}
	return r
}

func referenceColumns(records []models.Record) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, rec := range records {
		for _, name := range rec.Names() {
			if !seen[name] {
				seen[name] = true
				cols = append(cols, name)
			}
		}
	}
	return cols
}

func average(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// PrintSummary writes a human-readable summary of the report
func (r *Report) PrintSummary(w io.Writer) {
	rule := strings.Repeat("=", 70)
	dash := strings.Repeat("-", 70)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "INVENTORY EXTRACTION ACCURACY")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Evaluation Date: %s\n", r.Date.Format("2006-01-02 15:04:05"))
	if r.Reference != "" {
		fmt.Fprintf(w, "Reference: %s\n", r.Reference)
	}
	if r.Candidate != "" {
		fmt.Fprintf(w, "Candidate: %s\n", r.Candidate)
	}
	fmt.Fprintf(w, "Reference Records: %d\n", r.Records)
	fmt.Fprintf(w, "Missing Records: %d\n", r.MissingRecords)
	fmt.Fprintf(w, "Extra Records: %d\n", r.ExtraRecords)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "FIELD-LEVEL ACCURACY")
	fmt.Fprintln(w, dash)
	for _, s := range r.Fields {
		fmt.Fprintf(w, "\n%s:\n", s.Field)
		fmt.Fprintf(w, "  Average Score: %.2f%% (%.3f)\n", s.AverageScore*100, s.AverageScore)
		fmt.Fprintf(w, "  Exact Matches: %d\n", s.ExactMatches)
		fmt.Fprintf(w, "  Fuzzy Matches: %d\n", s.FuzzyMatches)
		fmt.Fprintf(w, "  No Matches: %d\n", s.NoMatches)
		fmt.Fprintf(w, "  Missing Fields: %d\n", s.MissingFields)
		fmt.Fprintf(w, "  Extra Fields: %d\n", s.ExtraFields)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "OVERALL SCORE")
	fmt.Fprintln(w, dash)
	fmt.Fprintf(w, "Overall Accuracy: %.2f%% (%.3f)\n", r.OverallAccuracy*100, r.OverallAccuracy)
	fmt.Fprintln(w, rule)
}

// SaveYAML writes the full report, including every field comparison
func (r *Report) SaveYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}
