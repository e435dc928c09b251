// Package fallback holds the small static datasets used when a live source
// cannot be fetched or parsed.
package fallback

import (
	_ "embed"
	"fmt"

	"github.com/shopspring/decimal"

	"hpi-affordability/models"
	"hpi-affordability/services"
	"hpi-affordability/utils"
)

//go:embed prices.csv
var priceCSV []byte

// Years spanned by the embedded price dataset.
const (
	PriceFirstYear = 2024
	PriceLastYear  = 2025
)

// CoversYear reports whether the embedded prices include year. Fallback
// salaries are stamped with the operating year, so outside this range no
// fallback salary can join and every row lacks a ratio.
func CoversYear(year int) bool {
	return year >= PriceFirstYear && year <= PriceLastYear
}

// weeklyPay is median gross weekly pay by region, in the source's own
// region naming.
var weeklyPay = []struct {
	Region string
	Weekly string
}{
	{"London", "913.40"},
	{"South East", "771.20"},
	{"East", "729.80"},
	{"North West", "681.00"},
	{"Yorkshire and the Humber", "658.70"},
	{"West Midlands", "679.50"},
	{"Wales", "654.90"},
	{"Scotland", "715.30"},
}

// PriceCSV returns a copy of the embedded price dataset in the same CSV
// layout the live source uses.
func PriceCSV() []byte {
	out := make([]byte, len(priceCSV))
	copy(out, priceCSV)
	return out
}

// Prices parses the embedded price dataset.
func Prices(logger *utils.Logger) ([]models.PriceObservation, error) {
	rows, err := services.NewPriceNormalizer(logger).Normalize(PriceCSV())
	if err != nil {
		return nil, fmt.Errorf("fallback prices: %w", err)
	}
	return rows, nil
}

// Salaries returns the static salary table stamped with year. Only years
// accepted by CoversYear join the embedded prices.
func Salaries(year int) []models.SalaryObservation {
	weeks := decimal.NewFromInt(52)
	out := make([]models.SalaryObservation, 0, len(weeklyPay))
	for _, p := range weeklyPay {
		annual, _ := decimal.RequireFromString(p.Weekly).Mul(weeks).Float64()
		out = append(out, models.SalaryObservation{
			Year:                year,
			RegionName:          services.NormaliseRegion(p.Region),
			AverageAnnualSalary: annual,
		})
	}
	return out
}
