package export

import (
	"fmt"
	"io"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/storage"
	"github.com/parquet-go/parquet-go"
)

// Cell is one value of the inventory in long form. Records have no fixed
// schema, so the table is written one cell per row and the row and column
// indices carry the order.
type Cell struct {
	Row         int64  `parquet:"row"`
	ColumnIndex int64  `parquet:"column_index"`
	Column      string `parquet:"column"`
	Value       string `parquet:"value"`
}

// Parquet writes the long-form cell table
type Parquet struct{}

func (Parquet) ContentType() string {
	return "application/vnd.apache.parquet"
}

func (Parquet) Extension() string {
	return ".parquet"
}

func (Parquet) Export(w io.Writer, snap storage.Snapshot) error {
	if len(snap.Records) == 0 {
		return ErrNothingToExport
	}

	cells := make([]Cell, 0, len(snap.Records)*len(snap.Columns))
	for i, row := range snap.Rows() {
		for j, v := range row {
			cells = append(cells, Cell{
				Row:         int64(i),
				ColumnIndex: int64(j),
				Column:      snap.Columns[j],
				Value:       v,
			})
		}
	}

	writer := parquet.NewGenericWriter[Cell](w)
	if _, err := writer.Write(cells); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
