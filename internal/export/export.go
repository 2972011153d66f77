// Package export writes the inventory out as a spreadsheet.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/storage"
)

// DefaultFilename is used when no output path is given
const DefaultFilename = "chemical_labels_data.xlsx"

// ErrNothingToExport is returned for an empty inventory
var ErrNothingToExport = errors.New("no records to export")

// Exporter renders a snapshot of the store. The column set becomes the
// header and every record becomes one row, in store order.
type Exporter interface {
	Export(w io.Writer, snap storage.Snapshot) error
	ContentType() string
	Extension() string
}

// ForPath picks the exporter matching the file extension
func ForPath(path string) (Exporter, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return XLSX{}, nil
	case ".parquet":
		return Parquet{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want .xlsx or .parquet)", ext)
	}
}

// WriteFile exports snap to path, choosing the format from its extension
func WriteFile(path string, snap storage.Snapshot) error {
	exp, err := ForPath(path)
	if err != nil {
		return err
	}
	if len(snap.Records) == 0 {
		return ErrNothingToExport
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := exp.Export(f, snap); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
