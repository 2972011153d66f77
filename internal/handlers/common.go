package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/intake"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/session"
)

type Handler struct {
	session        *session.Session
	fetcher        *intake.Fetcher
	maxUploadMB    int64
	allowedOrigins []string

	// baseCtx bounds background batches; it is cancelled when the server stops
	baseCtx context.Context
}

// Options configures a Handler
type Options struct {
	MaxUploadMB    int64
	AllowedOrigins []string
}

func New(ctx context.Context, sess *session.Session, opts Options) *Handler {
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 10
	}
	fetcher := intake.NewFetcher()
	fetcher.MaxBytes = opts.MaxUploadMB * 1024 * 1024
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Handler{
		session:        sess,
		fetcher:        fetcher,
		maxUploadMB:    opts.MaxUploadMB,
		allowedOrigins: opts.AllowedOrigins,
		baseCtx:        ctx,
	}
}

// Routes returns the HTTP API
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.HandleState)
		r.Post("/clear", h.HandleClear)

		r.Route("/images", func(r chi.Router) {
			r.Get("/", h.HandleListImages)
			r.Post("/", h.HandleUpload)
			r.Delete("/{id}", h.HandleDeleteImage)
			r.Get("/{id}/raw", h.HandleImageRaw)
		})

		r.Post("/extract", h.HandleExtract)

		r.Route("/records", func(r chi.Router) {
			r.Post("/blank", h.HandleAppendBlank)
			r.Delete("/{index}", h.HandleDeleteRecord)
			r.Post("/{index}/edit", h.HandleBeginEdit)
		})

		r.Route("/edit", func(r chi.Router) {
			r.Patch("/", h.HandleUpdateEdit)
			r.Post("/commit", h.HandleCommitEdit)
			r.Post("/cancel", h.HandleCancelEdit)
		})

		r.Route("/lookup", func(r chi.Router) {
			r.Post("/", h.HandleLookup)
			r.Post("/manual", h.HandleManualAdd)
			r.Delete("/pending", h.HandleDismissLookup)
		})

		r.Get("/export.xlsx", h.HandleExportXLSX)
		r.Get("/export.parquet", h.HandleExportParquet)
	})

	return r
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

// errorResponse is the body of every failed API call
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Debug(message, "status", code)
	}
	h.writeJSONStatus(w, code, errorResponse{Error: http.StatusText(code), Message: message})
}

// indexParam reads the {index} path parameter
func (h *Handler) indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.writeError(w, "Invalid record index", http.StatusBadRequest)
		return 0, false
	}
	return index, true
}
