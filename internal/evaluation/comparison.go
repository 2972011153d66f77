package evaluation

import (
	"regexp"
	"strings"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
)

// Method names how a field value was matched against the reference
type Method string

const (
	MethodExact           Method = "exact"
	MethodSubstring       Method = "substring"
	MethodFuzzyHigh       Method = "fuzzy_high"
	MethodFuzzyMedium     Method = "fuzzy_medium"
	MethodNoMatch         Method = "no_match"
	MethodActualMissing   Method = "actual_missing"
	MethodExpectedMissing Method = "expected_missing"
	MethodBothMissing     Method = "both_missing"
)

// FieldMatch is the comparison of one field of one record
type FieldMatch struct {
	Field    string  `yaml:"field"`
	Expected string  `yaml:"expected"`
	Actual   string  `yaml:"actual"`
	Score    float64 `yaml:"score"` // 0.0 to 1.0
	Method   Method  `yaml:"method"`
}

// Scored reports whether the match counts towards accuracy. Fields the
// reference leaves empty have no ground truth to score against.
func (m FieldMatch) Scored() bool {
	return m.Method != MethodBothMissing && m.Method != MethodExpectedMissing
}

// RecordComparison is the field-by-field comparison of one inventory row
type RecordComparison struct {
	Index  int          `yaml:"index"`
	Name   string       `yaml:"name"`
	Fields []FieldMatch `yaml:"fields"`
	Score  float64      `yaml:"score"`

	// Missing is set when the candidate inventory has no row at Index
	Missing bool `yaml:"missing,omitempty"`
}

// CompareRecords compares the listed fields of a reference row with the
// candidate row at the same position
func CompareRecords(index int, expected, actual models.Record, fields []string) RecordComparison {
	rc := RecordComparison{
		Index:  index,
		Name:   expected.Value(models.FieldChemicalName),
		Fields: make([]FieldMatch, 0, len(fields)),
	}

	total, scored := 0.0, 0
	for _, f := range fields {
		m := CompareField(f, expected.Value(f), actual.Value(f))
		rc.Fields = append(rc.Fields, m)
		if m.Scored() {
			total += m.Score
			scored++
		}
	}
	if scored > 0 {
		rc.Score = total / float64(scored)
	}
	return rc
}

// CompareField scores a single value against its reference
func CompareField(field, expected, actual string) FieldMatch {
	m := FieldMatch{Field: field, Expected: expected, Actual: actual}

	expNorm := normalize(expected)
	actNorm := normalize(actual)

	switch {
	case expNorm == "" && actNorm == "":
		m.Method = MethodBothMissing
		return m
	case expNorm == "":
		m.Method = MethodExpectedMissing
		return m
	case actNorm == "":
		m.Method = MethodActualMissing
		return m
	case expNorm == actNorm:
		m.Score = 1.0
		m.Method = MethodExact
		return m
	case strings.Contains(actNorm, expNorm) || strings.Contains(expNorm, actNorm):
		m.Score = 0.8
		m.Method = MethodSubstring
		return m
	}

	m.Score = similarity(expNorm, actNorm)
	switch {
	case m.Score > 0.7:
		m.Method = MethodFuzzyHigh
	case m.Score > 0.4:
		m.Method = MethodFuzzyMedium
	default:
		m.Method = MethodNoMatch
	}
	return m
}

var punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// normalize lowercases, drops punctuation and collapses whitespace, so that
// "Ethanol, 95%" matches "ethanol 95"
func normalize(text string) string {
	text = strings.ToLower(text)
	text = punctuation.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// similarity is 1 minus the edit distance over the longer length
func similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}
	return 1.0 - float64(levenshtein(r1, r2))/float64(max(len(r1), len(r2)))
}

func levenshtein(s1, s2 []rune) int {
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}
