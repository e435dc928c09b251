package services

import (
	"strconv"
	"strings"
)

// SheetStrategy picks the data sheet of a workbook.
type SheetStrategy interface {
	Name() string
	SelectSheet(wb Workbook) (string, bool)
}

// HeaderStrategy finds the header row within the first rows of a sheet.
type HeaderStrategy interface {
	Name() string
	FindHeader(rows [][]string) (int, bool)
}

// ColumnStrategy picks the pay column from a header row. labelCol is the
// region column, which is never a valid pay column.
type ColumnStrategy interface {
	Name() string
	PayColumn(header []string, labelCol int) (int, bool)
}

// ExactSheetName selects the sheet whose name matches case-insensitively.
type ExactSheetName struct {
	Sheet string
}

func (s ExactSheetName) Name() string { return "exact-name(" + s.Sheet + ")" }

func (s ExactSheetName) SelectSheet(wb Workbook) (string, bool) {
	for _, name := range wb.SheetNames() {
		if strings.EqualFold(strings.TrimSpace(name), s.Sheet) {
			return name, true
		}
	}
	return "", false
}

// DensestSheet selects the sheet with the most non-blank rows among its
// first ScanRows rows. Ties go to the earlier sheet.
type DensestSheet struct {
	ScanRows int
}

func (s DensestSheet) Name() string { return "densest-sheet" }

func (s DensestSheet) SelectSheet(wb Workbook) (string, bool) {
	best, bestCount := "", 0
	for _, name := range wb.SheetNames() {
		rows, err := wb.Rows(name, s.ScanRows)
		if err != nil {
			continue
		}
		count := 0
		for _, row := range rows {
			if !isBlankRow(row) {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = name, count
		}
	}
	return best, bestCount > 0
}

// FirstSheet selects the first sheet of the workbook.
type FirstSheet struct{}

func (FirstSheet) Name() string { return "first-sheet" }

func (FirstSheet) SelectSheet(wb Workbook) (string, bool) {
	names := wb.SheetNames()
	if len(names) == 0 {
		return "", false
	}
	return names[0], true
}

// FirstColumnLabel finds the row whose first cell equals Label.
type FirstColumnLabel struct {
	Label string
}

func (h FirstColumnLabel) Name() string { return "first-column(" + h.Label + ")" }

func (h FirstColumnLabel) FindHeader(rows [][]string) (int, bool) {
	for i, row := range rows {
		if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), h.Label) {
			return i, true
		}
	}
	return 0, false
}

// FirstRowHeader treats the first row as the header. Last resort.
type FirstRowHeader struct{}

func (FirstRowHeader) Name() string { return "first-row" }

func (FirstRowHeader) FindHeader(rows [][]string) (int, bool) {
	return 0, len(rows) > 0
}

// YearColumn selects the column headed by the given four-digit year.
type YearColumn struct {
	Year int
}

func (c YearColumn) Name() string { return "year-column(" + strconv.Itoa(c.Year) + ")" }

func (c YearColumn) PayColumn(header []string, labelCol int) (int, bool) {
	want := strconv.Itoa(c.Year)
	for i, h := range header {
		if i != labelCol && strings.TrimSpace(h) == want {
			return i, true
		}
	}
	return 0, false
}

// YearPrefixColumn selects the first column whose header starts with Prefix.
type YearPrefixColumn struct {
	Prefix string
}

func (c YearPrefixColumn) Name() string { return "year-prefix(" + c.Prefix + ")" }

func (c YearPrefixColumn) PayColumn(header []string, labelCol int) (int, bool) {
	for i, h := range header {
		if i != labelCol && strings.HasPrefix(strings.TrimSpace(h), c.Prefix) {
			return i, true
		}
	}
	return 0, false
}

// PositionalColumn selects a fixed column index.
type PositionalColumn struct {
	Index int
}

func (c PositionalColumn) Name() string { return "positional(" + strconv.Itoa(c.Index) + ")" }

func (c PositionalColumn) PayColumn(_ []string, labelCol int) (int, bool) {
	if c.Index == labelCol {
		return 0, false
	}
	return c.Index, true
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
