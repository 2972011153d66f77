package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/export"
)

func (h *Handler) HandleExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.writeExport(w, export.XLSX{})
}

func (h *Handler) HandleExportParquet(w http.ResponseWriter, r *http.Request) {
	h.writeExport(w, export.Parquet{})
}

func (h *Handler) writeExport(w http.ResponseWriter, exp export.Exporter) {
	// render fully before writing headers so a failure can still be reported
	var buf bytes.Buffer
	err := exp.Export(&buf, h.session.Store().Snapshot())
	if errors.Is(err, export.ErrNothingToExport) {
		h.writeError(w, "No records to export", http.StatusConflict)
		return
	}
	if err != nil {
		h.writeError(w, "Failed to export: "+err.Error(), http.StatusInternalServerError)
		return
	}

	filename := strings.TrimSuffix(export.DefaultFilename, ".xlsx") + exp.Extension()
	w.Header().Set("Content-Type", exp.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
