package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpi-affordability/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func csvOf(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestPriceNormalizeDropsBadAndMissingDates(t *testing.T) {
	n := NewPriceNormalizer(newTestLogger())
	raw := csvOf(
		"Date,RegionName,AveragePrice,Index,ExtraColumn",
		"01/01/2025,London,500000,120.5,A",
		"01/02/2025,North West,200000,110.2,B",
		"bad-date,Wales,150000,105.1,C",
		",Scotland,180000,108.0,D",
	)

	rows, err := n.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), rows[1].Date)
	for _, r := range rows {
		assert.False(t, r.Date.IsZero())
		assert.Equal(t, r.Date.Year(), r.Year)
	}
}

func TestPriceNormalizeKeepsTimestampDates(t *testing.T) {
	n := NewPriceNormalizer(newTestLogger())
	raw := csvOf(
		"Date,RegionName,AveragePrice,Index",
		"2025-01-01T00:00:00,London,500000,120.5",
		"2025-02-01 00:00,London,505000,121.0",
	)

	rows, err := n.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2025-01-01", rows[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2025-02-01", rows[1].Date.Format("2006-01-02"))
}

func TestPriceNormalizeDropsRowsWithNulls(t *testing.T) {
	n := NewPriceNormalizer(newTestLogger())
	raw := csvOf(
		"Date,RegionName,AveragePrice,Index",
		"2025-01-01,London,500000,120.5",
		"2025-02-01,,200000,",
		"2025-03-01,Wales,not-a-number,101",
	)

	rows, err := n.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "London", rows[0].RegionName)
	assert.Equal(t, "London", rows[0].ParentRegion)
}

func TestPriceNormalizeGranularRegion(t *testing.T) {
	n := NewPriceNormalizer(newTestLogger())
	raw := csvOf(
		"Date,RegionName,DistrictName,AveragePrice,Index",
		"2025-01-01,North West,Manchester,200000,110.2",
		"2025-01-01,London,,500000,120.5",
	)

	rows, err := n.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "North West", rows[0].ParentRegion)
	assert.Equal(t, "Manchester", rows[0].RegionName)
	assert.Equal(t, "London", rows[1].ParentRegion)
	assert.Equal(t, "London", rows[1].RegionName, "blank granular value falls back to the parent")
}

func TestPriceNormalizePrefersOfficialName(t *testing.T) {
	n := NewPriceNormalizer(newTestLogger())
	raw := csvOf(
		"Date,RegionName,TownName,OfficialName,AveragePrice,Index",
		"2025-01-01,North West,Town,Official,200000,110.2",
	)

	rows, err := n.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Official", rows[0].RegionName)
}

func TestPriceNormalizeHeaderIsCaseInsensitiveAndBOMSafe(t *testing.T) {
	n := NewPriceNormalizer(newTestLogger())
	raw := append([]byte("\xef\xbb\xbf"), csvOf(
		" date ,regionname,AVERAGEPRICE,Index",
		"2025-01-01,London,\"500,000\",120.5",
	)...)

	rows, err := n.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 500000.0, rows[0].AveragePrice)
}

func TestPriceNormalizeMissingColumns(t *testing.T) {
	n := NewPriceNormalizer(newTestLogger())
	raw := csvOf(
		"Date,RegionName,Index",
		"2025-01-01,London,120.5",
	)

	rows, err := n.Normalize(raw)
	assert.Nil(t, rows)

	var serr *StructureError
	require.True(t, errors.As(err, &serr))
	assert.Contains(t, serr.Reason, "averageprice")
}

func TestPriceNormalizeEmptyInput(t *testing.T) {
	n := NewPriceNormalizer(newTestLogger())

	rows, err := n.Normalize(nil)
	assert.Empty(t, rows)
	assert.ErrorIs(t, err, ErrEmptyInput)

	rows, err = n.Normalize(csvOf("Date,RegionName,AveragePrice,Index"))
	assert.Empty(t, rows)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestPriceNormalizeNeverGrowsRowCount(t *testing.T) {
	n := NewPriceNormalizer(newTestLogger())
	lines := []string{"Date,RegionName,AveragePrice,Index"}
	inputs := []string{
		"2025-01-01,London,1,1",
		"2025-13-01,London,1,1",
		"31/12/2024,London,1,1",
		"2024-12,London,1,1",
		"garbage",
		"2025-01-01,London,1",
		"\"unterminated,London,1,1",
	}
	lines = append(lines, inputs...)

	rows, err := n.Normalize(csvOf(lines...))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(rows), len(inputs))
	for _, r := range rows {
		assert.False(t, r.Date.IsZero())
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{"2025-01-01", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"01/02/2025", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"1/2/2025", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"2025-03-01 00:00:00", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"2025-01-01T00:00:00", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"2025-01-01 00:00", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"2025-05-01T12:30:00Z", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"2025-04", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), true},
		{"bad-date", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := parseDate(tt.raw)
		assert.Equal(t, tt.ok, ok, "parseDate(%q)", tt.raw)
		assert.True(t, tt.want.Equal(got), "parseDate(%q) = %v; want %v", tt.raw, got, tt.want)
	}
}
