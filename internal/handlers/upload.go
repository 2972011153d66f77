package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/intake"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/models"
)

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	// Check if this is a JSON request with image URLs
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLUpload(w, r)
		return
	}

	h.handleFileUpload(w, r)
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ImageURL  string   `json:"image_url"`
		ImageURLs []string `json:"image_urls"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	urls := request.ImageURLs
	if request.ImageURL != "" {
		urls = append([]string{request.ImageURL}, urls...)
	}
	if len(urls) == 0 {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}

	payloads := make([]intake.Payload, 0, len(urls))
	for _, u := range urls {
		if !intake.IsURL(u) {
			h.writeError(w, "Invalid image URL: "+u, http.StatusBadRequest)
			return
		}
		p, err := h.fetcher.Download(r.Context(), u)
		if err != nil {
			h.writeError(w, "Failed to process image URL: "+err.Error(), http.StatusBadRequest)
			return
		}
		payloads = append(payloads, p)
	}

	h.writeUploaded(w, h.session.AddImages(payloads...))
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.maxUploadMB * 1024 * 1024
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		h.writeError(w, "Failed to read upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	headers := append(r.MultipartForm.File["files"], r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		h.writeError(w, "No files uploaded", http.StatusBadRequest)
		return
	}

	payloads := make([]intake.Payload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
		fileData, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		file.Close()
		if err != nil {
			h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
			return
		}

		if int64(len(fileData)) > maxBytes {
			h.writeError(w, fmt.Sprintf("File too large (max %dMB): %s", h.maxUploadMB, header.Filename), http.StatusBadRequest)
			return
		}

		p, err := intake.NewPayload(header.Filename, fileData)
		if err != nil {
			if errors.Is(err, intake.ErrNotImage) {
				h.writeError(w, err.Error(), http.StatusUnsupportedMediaType)
				return
			}
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		payloads = append(payloads, p)
	}

	h.writeUploaded(w, h.session.AddImages(payloads...))
}

func (h *Handler) writeUploaded(w http.ResponseWriter, added []models.ImageItem) {
	response := map[string]any{
		"message": fmt.Sprintf("Successfully uploaded %d image(s)", len(added)),
		"images":  added,
	}
	h.writeJSONStatus(w, http.StatusCreated, response)
}

func (h *Handler) HandleListImages(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.session.Queue().Items())
}

// HandleDeleteImage removes an image and every record extracted from it
func (h *Handler) HandleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.session.RemoveImage(id) {
		h.writeError(w, "Image not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
