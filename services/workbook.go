package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Workbook is the read-only view of a spreadsheet the salary discovery
// strategies work against.
type Workbook interface {
	SheetNames() []string
	// Rows returns up to limit rows of the sheet as text; limit <= 0 reads all.
	Rows(sheet string, limit int) ([][]string, error)
}

type excelWorkbook struct {
	f *excelize.File
}

// openWorkbook opens an XLSX workbook held in memory. Callers must Close it.
func openWorkbook(raw []byte) (*excelWorkbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return &excelWorkbook{f: f}, nil
}

func (w *excelWorkbook) SheetNames() []string {
	return w.f.GetSheetList()
}

func (w *excelWorkbook) Rows(sheet string, limit int) ([][]string, error) {
	it, err := w.f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("open sheet %q: %w", sheet, err)
	}
	defer it.Close()

	var out [][]string
	for it.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		cols, err := it.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q row %d: %w", sheet, len(out)+1, err)
		}
		out = append(out, cols)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("iterate sheet %q: %w", sheet, err)
	}
	return out, nil
}

func (w *excelWorkbook) Close() error {
	return w.f.Close()
}
