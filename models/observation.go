package models

import "time"

// PriceObservation is one month of the house-price index for a region.
// ParentRegion is the coarse administrative region the row belongs to;
// RegionName equals it when the source has no finer breakdown.
type PriceObservation struct {
	Date         time.Time
	ParentRegion string
	RegionName   string
	AveragePrice float64
	Index        float64
	Year         int
}

// SalaryObservation is the annualised average pay of a coarse region.
type SalaryObservation struct {
	Year                int
	RegionName          string
	AverageAnnualSalary float64
}

// AffordabilityRow is the validated record committed to the destination table.
// A nil salary or ratio means the value is unknown.
type AffordabilityRow struct {
	Date                time.Time `validate:"required"`
	RegionName          string    `validate:"notblank"`
	AveragePrice        float64   `validate:"finite,gte=0"`
	Index               float64   `validate:"finite"`
	AverageAnnualSalary *float64  `validate:"omitnil,finite"`
	AffordabilityRatio  *float64  `validate:"omitnil,finite"`
}

// DateString formats the row date as an ISO-8601 calendar date.
func (r AffordabilityRow) DateString() string {
	return r.Date.Format("2006-01-02")
}
