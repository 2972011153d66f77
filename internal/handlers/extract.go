package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/orchestrator"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/session"
)

// HandleExtract starts a batch over every uploaded image. The batch runs in
// the background; clients poll /api/state for progress and notices.
func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	obs := orchestrator.ObserverFuncs{
		Progress: func(current, total int, item models.ImageItem) {
			slog.Info("Processing image", "current", current, "total", total, "filename", item.Filename)
		},
		Complete: func(summary orchestrator.Summary) {
			slog.Info("Batch complete", "extracted", summary.Extracted, "failed", summary.Failed)
		},
	}

	err := h.session.StartExtract(h.baseCtx, request.Prompt, obs)
	switch {
	case errors.Is(err, session.ErrNoImages):
		h.writeError(w, "Upload at least one image before extracting", http.StatusBadRequest)
		return
	case err != nil:
		h.writeBusy(w, err)
		return
	}

	h.writeJSONStatus(w, http.StatusAccepted, map[string]any{
		"message": "Extraction started",
		"images":  h.session.Queue().Len(),
	})
}
