package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/lookup"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/session"
)

// HandleLookup resolves a CAS number or chemical name. A failed lookup
// answers 404 with the query and leaves the session waiting for the
// client to accept or decline the manual add.
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Query string `json:"query"`
		By    string `json:"by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.By == "" {
		request.By = "cas"
	}
	mode, err := lookup.ParseMode(request.By)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.session.Lookup(r.Context(), request.Query, mode)
	switch {
	case err == nil:
		h.writeJSONStatus(w, http.StatusCreated, map[string]any{"record": record})
	case errors.Is(err, lookup.ErrEmptyQuery):
		h.writeError(w, "query is required", http.StatusBadRequest)
	case errors.Is(err, lookup.ErrNotFound):
		h.writeJSONStatus(w, http.StatusNotFound, map[string]any{
			"error":          "not_found",
			"message":        lookup.NotFoundMessage,
			"query":          request.Query,
			"manual_add_url": "/api/lookup/manual",
		})
	default:
		h.writeBusy(w, err)
	}
}

// HandleManualAdd accepts the manual fallback for the last failed lookup
func (h *Handler) HandleManualAdd(w http.ResponseWriter, r *http.Request) {
	record, err := h.session.AddManual()
	if errors.Is(err, session.ErrNoPendingLookup) {
		h.writeError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, map[string]any{"record": record})
}

// HandleDismissLookup declines the manual fallback
func (h *Handler) HandleDismissLookup(w http.ResponseWriter, r *http.Request) {
	h.session.DismissNotFound()
	w.WriteHeader(http.StatusNoContent)
}
