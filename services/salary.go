package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"hpi-affordability/models"
	"hpi-affordability/utils"
)

const (
	salarySource = "salary"

	// densityScanRows bounds how much of each sheet the density heuristic reads.
	densityScanRows = 200

	weeksPerYear = 52
)

var weeksPerYearDec = decimal.NewFromInt(weeksPerYear)

// SalaryNormalizer turns the regional earnings workbook into SalaryObservations.
// The workbook layout is discovered with ranked strategies: the first
// strategy of each list that succeeds wins.
type SalaryNormalizer struct {
	year   int
	logger *utils.Logger

	Sheets  []SheetStrategy
	Headers []HeaderStrategy
	Columns []ColumnStrategy
}

// NewSalaryNormalizer creates a SalaryNormalizer that stamps every row
// with operatingYear.
func NewSalaryNormalizer(operatingYear int, logger *utils.Logger) *SalaryNormalizer {
	return &SalaryNormalizer{
		year:   operatingYear,
		logger: logger,
		Sheets: []SheetStrategy{
			ExactSheetName{Sheet: "All"},
			DensestSheet{ScanRows: densityScanRows},
			FirstSheet{},
		},
		Headers: []HeaderStrategy{
			FirstColumnLabel{Label: "region"},
			FirstRowHeader{},
		},
		Columns: []ColumnStrategy{
			YearColumn{Year: operatingYear},
			YearPrefixColumn{Prefix: "20"},
			PositionalColumn{Index: 1},
		},
	}
}

// Normalize parses an XLSX workbook held in raw.
func (n *SalaryNormalizer) Normalize(raw []byte) ([]models.SalaryObservation, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyInput
	}

	wb, err := openWorkbook(raw)
	if err != nil {
		return nil, n.fail(&StructureError{Source: salarySource, Reason: "unreadable workbook", Err: err})
	}
	defer wb.Close()

	return n.NormalizeWorkbook(wb)
}

// NormalizeWorkbook runs sheet, header and column discovery on wb and
// extracts the salary rows.
func (n *SalaryNormalizer) NormalizeWorkbook(wb Workbook) ([]models.SalaryObservation, error) {
	if len(wb.SheetNames()) == 0 {
		return nil, n.fail(&StructureError{Source: salarySource, Reason: "workbook has no sheets"})
	}

	sheet, ok := n.selectSheet(wb)
	if !ok {
		return nil, n.fail(&StructureError{Source: salarySource, Reason: "no sheet could be selected"})
	}

	rows, err := wb.Rows(sheet, 0)
	if err != nil {
		return nil, n.fail(&StructureError{Source: salarySource, Reason: "unreadable sheet " + sheet, Err: err})
	}

	headerRow, ok := n.findHeader(sheet, rows)
	if !ok {
		return nil, n.fail(&StructureError{Source: salarySource, Reason: "sheet " + sheet + " is empty"})
	}
	header := rows[headerRow]

	labelCol := findLabelColumn(header)
	if labelCol < 0 {
		return nil, n.fail(&StructureError{Source: salarySource, Reason: "no region column in sheet " + sheet})
	}

	payCol, ok := n.findPayColumn(header, labelCol)
	if !ok {
		return nil, n.fail(&StructureError{Source: salarySource, Reason: "no pay column in sheet " + sheet})
	}

	out := n.extract(rows[headerRow+1:], labelCol, payCol)
	n.logger.Info("[salary] Sheet %q: %d data rows → %d salary rows (year %d)",
		sheet, len(rows)-headerRow-1, len(out), n.year)

	if len(out) == 0 {
		return nil, n.fail(ErrNoRows)
	}
	return out, nil
}

func (n *SalaryNormalizer) fail(err error) error {
	n.logger.Error("[salary] %v", err)
	return err
}

func (n *SalaryNormalizer) selectSheet(wb Workbook) (string, bool) {
	for _, s := range n.Sheets {
		if name, ok := s.SelectSheet(wb); ok {
			n.logger.Info("[salary] Sheet strategy %s selected %q", s.Name(), name)
			return name, true
		}
	}
	return "", false
}

func (n *SalaryNormalizer) findHeader(sheet string, rows [][]string) (int, bool) {
	for i, h := range n.Headers {
		if row, ok := h.FindHeader(rows); ok {
			if i == len(n.Headers)-1 && len(n.Headers) > 1 {
				n.logger.Warn("[salary] No region header found in %q, falling back to %s strategy (row %d)", sheet, h.Name(), row+1)
			} else {
				n.logger.Info("[salary] Header strategy %s found header at row %d of %q", h.Name(), row+1, sheet)
			}
			return row, true
		}
	}
	return 0, false
}

func (n *SalaryNormalizer) findPayColumn(header []string, labelCol int) (int, bool) {
	for _, c := range n.Columns {
		if col, ok := c.PayColumn(header, labelCol); ok {
			n.logger.Info("[salary] Column strategy %s selected pay column %d", c.Name(), col+1)
			return col, true
		}
	}
	return 0, false
}

func (n *SalaryNormalizer) extract(rows [][]string, labelCol, payCol int) []models.SalaryObservation {
	out := make([]models.SalaryObservation, 0, len(rows))
	var skipped int
	for _, row := range rows {
		label := normaliseText(cellAt(row, labelCol))
		pay := cellAt(row, payCol)
		if label == "" || strings.TrimSpace(pay) == "" {
			continue
		}

		weekly, ok := parseDecimal(pay)
		if !ok {
			skipped++
			n.logger.Debug("[salary] Dropping %q: non-numeric pay %q", label, pay)
			continue
		}

		out = append(out, models.SalaryObservation{
			Year:                n.year,
			RegionName:          NormaliseRegion(label),
			AverageAnnualSalary: weekly.Mul(weeksPerYearDec).InexactFloat64(),
		})
	}
	if skipped > 0 {
		n.logger.Warn("[salary] Dropped %d rows with non-numeric pay", skipped)
	}
	return out
}

func findLabelColumn(header []string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "region") {
			return i
		}
	}
	return -1
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
