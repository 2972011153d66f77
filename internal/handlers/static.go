package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HandleImageRaw serves the uploaded bytes so clients can show previews
func (h *Handler) HandleImageRaw(w http.ResponseWriter, r *http.Request) {
	item, ok := h.session.Queue().Get(chi.URLParam(r, "id"))
	if !ok {
		h.writeError(w, "Image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", item.Image.MediaType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, item.Filename, time.Time{}, bytes.NewReader(item.Image.Data))
}
