package export

import (
	"fmt"
	"io"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/storage"
	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the single worksheet in the workbook
const SheetName = "Chemical Data"

// XLSX writes an Excel workbook
type XLSX struct{}

func (XLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSX) Extension() string {
	return ".xlsx"
}

func (XLSX) Export(w io.Writer, snap storage.Snapshot) error {
	if len(snap.Records) == 0 {
		return ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(snap.Columns))
	for i, col := range snap.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range snap.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
