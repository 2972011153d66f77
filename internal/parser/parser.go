// Package parser turns free-text model output into inventory records.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
)

// ErrParse is matched by every ParseError
var ErrParse = errors.New("could not parse JSON from response")

// ParseError reports that a response held no usable JSON object
type ParseError struct {
	Reason  string
	Snippet string
}

func (e *ParseError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("%s: %s", ErrParse, e.Reason)
	}
	return fmt.Sprintf("%s: %s (raw: %s)", ErrParse, e.Reason, e.Snippet)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// ParseRecord extracts the JSON object spanning the first '{' to the last '}'
// of text and returns its members as a record, in the order they appear.
//
// The span is greedy, not brace-balanced: commentary before or after the
// object is tolerated, but a second object after the intended one makes the
// span invalid and the parse fails.
func ParseRecord(text string) (models.Record, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 {
		return models.Record{}, &ParseError{Reason: "no JSON object found", Snippet: truncate(text, 200)}
	}
	if end < start {
		return models.Record{}, &ParseError{Reason: "closing brace precedes opening brace", Snippet: truncate(text, 200)}
	}

	span := []byte(text[start : end+1])
	if !json.Valid(span) {
		return models.Record{}, &ParseError{Reason: "invalid JSON", Snippet: truncate(string(span), 200)}
	}

	dec := json.NewDecoder(bytes.NewReader(span))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return models.Record{}, &ParseError{Reason: err.Error()}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return models.Record{}, &ParseError{Reason: "response is not a JSON object", Snippet: truncate(string(span), 200)}
	}

	var record models.Record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return models.Record{}, &ParseError{Reason: err.Error()}
		}
		key, ok := tok.(string)
		if !ok {
			return models.Record{}, &ParseError{Reason: fmt.Sprintf("unexpected token %v", tok)}
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return models.Record{}, &ParseError{Reason: err.Error()}
		}

		value, err := coerce(raw)
		if err != nil {
			return models.Record{}, &ParseError{Reason: err.Error()}
		}
		record.Set(key, value)
	}

	return record, nil
}

// coerce renders any JSON value as a string. Strings are unquoted, null is
// empty, and numbers and booleans keep their literal text. Arrays and objects
// are kept as compact JSON.
func coerce(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case 'n':
		return "", nil
	case '[', '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		return string(raw), nil
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
