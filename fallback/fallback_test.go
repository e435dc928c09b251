package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpi-affordability/services"
	"hpi-affordability/utils"
)

func TestPricesParse(t *testing.T) {
	prices, err := Prices(utils.NewNopLogger())
	require.NoError(t, err)
	assert.Len(t, prices, 36)

	var manchester, london bool
	for _, p := range prices {
		assert.Equal(t, p.Date.Year(), p.Year)
		assert.Greater(t, p.AveragePrice, 0.0)
		if p.RegionName == "Manchester" {
			manchester = true
			assert.Equal(t, "North West", p.ParentRegion)
		}
		if p.RegionName == "London" {
			london = true
			assert.Equal(t, "London", p.ParentRegion)
		}
	}
	assert.True(t, manchester)
	assert.True(t, london)
}

func TestPriceCSVReturnsCopy(t *testing.T) {
	a := PriceCSV()
	a[0] = 'X'
	assert.Equal(t, byte('D'), PriceCSV()[0])
}

func TestSalariesStampedAndRemapped(t *testing.T) {
	salaries := Salaries(2031)
	require.Len(t, salaries, len(weeklyPay))

	byRegion := map[string]float64{}
	for _, s := range salaries {
		assert.Equal(t, 2031, s.Year)
		byRegion[s.RegionName] = s.AverageAnnualSalary
	}
	assert.Contains(t, byRegion, "East of England")
	assert.NotContains(t, byRegion, "East")
	assert.Contains(t, byRegion, "Yorkshire and The Humber")
	assert.InDelta(t, 913.40*52, byRegion["London"], 1e-6)
}

func TestEveryFallbackRowGetsASalary(t *testing.T) {
	logger := utils.NewNopLogger()
	prices, err := Prices(logger)
	require.NoError(t, err)

	rows := services.NewReconciler(logger).Reconcile(prices, Salaries(2025))
	require.Len(t, rows, len(prices))
	for _, r := range rows {
		require.NotNil(t, r.AverageAnnualSalary, r.RegionName)
		require.NotNil(t, r.AffordabilityRatio, r.RegionName)
	}
}

func TestPriceYearsMatchEmbeddedData(t *testing.T) {
	prices, err := Prices(utils.NewNopLogger())
	require.NoError(t, err)

	first, last := prices[0].Year, prices[0].Year
	for _, p := range prices {
		first = min(first, p.Year)
		last = max(last, p.Year)
	}
	assert.Equal(t, PriceFirstYear, first)
	assert.Equal(t, PriceLastYear, last)

	assert.True(t, CoversYear(2024))
	assert.True(t, CoversYear(2025))
	assert.False(t, CoversYear(2023))
	assert.False(t, CoversYear(2026))
}
