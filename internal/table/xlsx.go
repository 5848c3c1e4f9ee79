package table

import (
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	ExportFilename = "nhm_gbif_raw_data.xlsx"
	ExportMIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	exportSheet = "Sheet1"
)

// XLSX encodes t as a single-sheet workbook: a header row with the column
// names followed by one row per record. Integral numbers are written as
// numbers, everything else as text.
func XLSX(t *Table) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	header := make([]any, 0, len(t.Columns()))
	for _, c := range t.Columns() {
		header = append(header, c)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i := range t.Len() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("cell name (row = %d): %w", i, err)
		}

		src := t.Row(i)
		row := make([]any, len(src))
		for j, v := range src {
			row[j] = xlsxValue(v)
		}

		if err = f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func xlsxValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case bool:
		return x
	default:
		return FormatCell(x)
	}
}
