package services

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpi-affordability/models"
)

func ptr(v float64) *float64 { return &v }

func validRow(region string, price float64) models.AffordabilityRow {
	return models.AffordabilityRow{
		Date:         day(2025, 1, 1),
		RegionName:   region,
		AveragePrice: price,
		Index:        100,
	}
}

func TestValidatorCountsInvalidPrices(t *testing.T) {
	rows := []models.AffordabilityRow{
		validRow("London", 500000),
		validRow("Wales", -1),
		validRow("Scotland", math.NaN()),
		validRow("North East", 0),
		validRow("North West", math.Inf(1)),
	}

	valid, invalid := NewRowValidator(newTestLogger()).Validate(rows)
	assert.Equal(t, 3, invalid)
	require.Len(t, valid, len(rows)-3)
	assert.Equal(t, "London", valid[0].RegionName)
	assert.Equal(t, "North East", valid[1].RegionName, "zero price is allowed")
}

func TestValidatorRules(t *testing.T) {
	withSalary := validRow("London", 500000)
	withSalary.AverageAnnualSalary = ptr(52000)
	withSalary.AffordabilityRatio = ptr(9.6)

	noDate := validRow("London", 1)
	noDate.Date = time.Time{}

	blankRegion := validRow("   ", 1)

	badIndex := validRow("London", 1)
	badIndex.Index = math.NaN()

	badRatio := validRow("London", 1)
	badRatio.AverageAnnualSalary = ptr(1)
	badRatio.AffordabilityRatio = ptr(math.Inf(-1))

	tests := []struct {
		name  string
		row   models.AffordabilityRow
		valid bool
	}{
		{"minimal row", validRow("London", 500000), true},
		{"optional salary and ratio", withSalary, true},
		{"zero date", noDate, false},
		{"blank region", blankRegion, false},
		{"non-finite index", badIndex, false},
		{"non-finite ratio", badRatio, false},
	}

	v := NewRowValidator(newTestLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, invalid := v.Validate([]models.AffordabilityRow{tt.row})
			if tt.valid {
				assert.Len(t, valid, 1)
				assert.Zero(t, invalid)
			} else {
				assert.Empty(t, valid)
				assert.Equal(t, 1, invalid)
			}
		})
	}
}

func TestValidatorEmptyBatch(t *testing.T) {
	valid, invalid := NewRowValidator(newTestLogger()).Validate(nil)
	assert.Empty(t, valid)
	assert.Zero(t, invalid)
}
