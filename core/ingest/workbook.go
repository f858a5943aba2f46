package ingest

import (
	"fmt"
	"io"
	"os"

	"github.com/unidoc/unioffice/common/license"
	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unioffice/spreadsheet/reference"
)

// SetLicenseKey registers a metered key with the spreadsheet reader
func SetLicenseKey(key string) error {
	if key == "" {
		return nil
	}
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("failed to set spreadsheet license: %w", err)
	}
	return nil
}

// ReadWorkbook returns the cell text of the first sheet as rows. Cells keep
// their column position, so sparse rows are padded with empty strings.
func ReadWorkbook(r io.ReaderAt, size int64) ([][]string, error) {
	wb, err := spreadsheet.Read(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.Sheets()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	var rows [][]string
	for _, row := range sheets[0].Rows() {
		var values []string
		for _, cell := range row.Cells() {
			ref, err := reference.ParseCellReference(cell.Reference())
			if err != nil {
				continue
			}
			col := int(ref.ColumnIdx)
			for len(values) <= col {
				values = append(values, "")
			}
			values[col] = cell.GetFormattedValue()
		}
		rows = append(rows, values)
	}

	return rows, nil
}

// ReadFile parses orders from an .xlsx file on disk
func ReadFile(path string) (SheetResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return SheetResult{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return SheetResult{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	rows, err := ReadWorkbook(f, info.Size())
	if err != nil {
		return SheetResult{}, err
	}
	return ParseRows(rows)
}
