package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is positional tabular content for download rendering. Rows shorter
// than Columns are padded; longer rows are an error.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Append adds one row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// CSVExporter renders a Table as CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes with a header line.
func (e *CSVExporter) Render(table Table) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("csv requires at least one column")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range table.Rows {
		padded, err := padRow(row, len(table.Columns))
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", i, err)
		}
		if err := w.Write(padded); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func padRow(row []string, width int) ([]string, error) {
	if len(row) > width {
		return nil, fmt.Errorf("has %d cells, table has %d columns", len(row), width)
	}
	if len(row) == width {
		return row, nil
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded, nil
}
