package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

var numberReplacer = strings.NewReplacer(",", "", "£", "", "$", "", " ", "", "\u00a0", "")

// parseDecimal coerces a spreadsheet or CSV cell into a decimal. Thousands
// separators and currency signs are ignored; blanks, suppression markers
// ("x", ":", "..") and anything else non-numeric report ok=false.
func parseDecimal(raw string) (decimal.Decimal, bool) {
	s := numberReplacer.Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func parseFloat(raw string) (float64, bool) {
	d, ok := parseDecimal(raw)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}
