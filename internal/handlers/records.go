package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/session"
)

// stateResponse is everything the client needs to render the session
type stateResponse struct {
	session.State
	Notices []string `json:"notices"`
}

// HandleState returns the session snapshot and drains pending notices
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	notices := h.session.Notices()
	if notices == nil {
		notices = []string{}
	}
	h.writeJSON(w, stateResponse{State: h.session.State(), Notices: notices})
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.session.Clear()
	h.HandleState(w, r)
}

func (h *Handler) HandleAppendBlank(w http.ResponseWriter, r *http.Request) {
	h.session.AppendBlank()
	h.writeJSONStatus(w, http.StatusCreated, h.session.State())
}

func (h *Handler) HandleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	index, ok := h.indexParam(w, r)
	if !ok {
		return
	}
	// out-of-range removal is a no-op, not an error
	h.session.RemoveRecord(index)
	h.writeJSON(w, h.session.State())
}

func (h *Handler) HandleBeginEdit(w http.ResponseWriter, r *http.Request) {
	index, ok := h.indexParam(w, r)
	if !ok {
		return
	}
	started, err := h.session.BeginEdit(index)
	if err != nil {
		h.writeBusy(w, err)
		return
	}
	if !started {
		h.writeError(w, "Record not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, h.session.State())
}

// HandleUpdateEdit changes fields of the pending edit; the body is an object
// of field name to new value. Fields are applied in the order they appear,
// and nothing is applied when any of them is invalid.
func (h *Handler) HandleUpdateEdit(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(r.Body)
	if err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	for _, f := range fields {
		if f.Name == "" {
			h.writeError(w, "Field name cannot be empty", http.StatusBadRequest)
			return
		}
	}
	if h.session.Mode() != session.Editing {
		h.writeError(w, "No edit in progress", http.StatusConflict)
		return
	}

	for _, f := range fields {
		if !h.session.UpdateEditField(f.Name, f.Value) {
			h.writeError(w, "No edit in progress", http.StatusConflict)
			return
		}
	}
	h.writeJSON(w, h.session.State())
}

// decodeFields reads a JSON object of string values, keeping key order.
// A repeated key keeps its first position and its last value.
func decodeFields(body io.Reader) ([]models.Field, error) {
	dec := json.NewDecoder(body)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("body must be a JSON object")
	}

	var record models.Record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		record.Set(name, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return record.Fields, nil
}

func (h *Handler) HandleCommitEdit(w http.ResponseWriter, r *http.Request) {
	committed := h.session.CommitEdit()
	h.writeJSON(w, map[string]any{
		"committed": committed,
		"state":     h.session.State(),
	})
}

func (h *Handler) HandleCancelEdit(w http.ResponseWriter, r *http.Request) {
	h.session.CancelEdit()
	h.writeJSON(w, h.session.State())
}

func (h *Handler) writeBusy(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrBusy) {
		h.writeError(w, err.Error(), http.StatusConflict)
		return
	}
	h.writeError(w, err.Error(), http.StatusInternalServerError)
}
