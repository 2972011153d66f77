// Package lookup resolves a chemical from a CAS number or a name with a
// text-only model query and adds the answer to the inventory.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/parser"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/storage"
)

// Mode selects how the query is interpreted
type Mode int

const (
	ByIdentifier Mode = iota
	ByName
)

func (m Mode) String() string {
	switch m {
	case ByIdentifier:
		return "cas"
	case ByName:
		return "name"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts the names used on the command line and in the API
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cas", "identifier", "id":
		return ByIdentifier, nil
	case "name":
		return ByName, nil
	default:
		return 0, fmt.Errorf("unknown lookup mode %q (want cas or name)", s)
	}
}

// NotFoundMessage is shown when a lookup yields nothing usable
const NotFoundMessage = "Chemical not found. Item must be manually added to inventory. " +
	"Please check the CAS number or chemical name and try again, " +
	"or add the information manually by editing the table after closing this dialog."

var (
	// ErrEmptyQuery is returned for a blank query; nothing is sent to the model
	ErrEmptyQuery = errors.New("lookup query is empty")

	// ErrNotFound is matched by every NotFoundError
	ErrNotFound = errors.New("chemical not found")
)

// NotFoundError reports a lookup whose query could not be resolved, either
// because the model was unreachable or because its answer did not parse
type NotFoundError struct {
	Query string
	Mode  Mode
	Err   error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %q by %s: %v", ErrNotFound, e.Query, e.Mode, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Querier sends a text-only instruction to the model
type Querier interface {
	Query(ctx context.Context, instruction string) (string, error)
}

// Service resolves chemicals into the record store
type Service struct {
	querier Querier
	store   *storage.RecordStore
}

func NewService(querier Querier, store *storage.RecordStore) *Service {
	return &Service{querier: querier, store: store}
}

// Instruction builds the model prompt for a query
func Instruction(query string, mode Mode) string {
	values := map[string]string{}
	var lead string
	if mode == ByIdentifier {
		lead = "Look up the chemical with CAS number: " + query
		values[models.FieldCASNumber] = query
	} else {
		lead = "Look up the chemical: " + query
		values[models.FieldChemicalName] = query
	}

	var format strings.Builder
	format.WriteString("{")
	for i, field := range models.LookupFields {
		if i > 0 {
			format.WriteString(", ")
		}
		v, ok := values[field]
		if !ok {
			v = "..."
		}
		fmt.Fprintf(&format, "%q: %q", field, v)
	}
	format.WriteString("}")

	return fmt.Sprintf("%s. Provide the following information in JSON format: %s. Only return valid JSON, no other text.",
		lead, format.String())
}

// Lookup asks the model about query and appends the answer as a new record.
// Failures of any kind are reported as a NotFoundError; the store is then
// left untouched and the caller may fall back to AddManual.
func (s *Service) Lookup(ctx context.Context, query string, mode Mode) (models.Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.Record{}, ErrEmptyQuery
	}

	text, err := s.querier.Query(ctx, Instruction(query, mode))
	if err != nil {
		slog.Warn("Lookup request failed", "query", query, "mode", mode, "err", err)
		return models.Record{}, &NotFoundError{Query: query, Mode: mode, Err: err}
	}

	record, err := parser.ParseRecord(text)
	if err != nil {
		slog.Warn("Lookup answer unusable", "query", query, "mode", mode, "err", err)
		return models.Record{}, &NotFoundError{Query: query, Mode: mode, Err: err}
	}

	s.store.Append(record)
	slog.Info("Chemical looked up", "query", query, "mode", mode, "fields", len(record.Fields))
	return record, nil
}

// AddManual appends a canonical record named after query. It is the explicit
// fallback after a NotFoundError and is never taken implicitly.
func (s *Service) AddManual(query string) models.Record {
	return s.store.AppendManual(strings.TrimSpace(query))
}
