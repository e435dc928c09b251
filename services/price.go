package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"time"

	"hpi-affordability/models"
	"hpi-affordability/utils"
)

const priceSource = "price"

// Required price columns, matched case-insensitively.
const (
	colDate         = "date"
	colRegionName   = "regionname"
	colAveragePrice = "averageprice"
	colIndex        = "index"
)

// fineRegionColumns are the optional granular region columns, in order of preference.
var fineRegionColumns = []string{"officialname", "townname", "districtname"}

// dateLayouts are tried in order. Slash dates are UK day-first.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01",
}

// PriceNormalizer turns the house price index CSV into PriceObservations.
type PriceNormalizer struct {
	logger *utils.Logger
}

// NewPriceNormalizer creates a PriceNormalizer with the given logger.
func NewPriceNormalizer(logger *utils.Logger) *PriceNormalizer {
	return &PriceNormalizer{logger: logger}
}

type priceColumns struct {
	date, parent, price, index int
	fine                       int // -1 when the source has no granular column
	fineName                   string
}

// Normalize parses raw CSV bytes. Malformed rows are dropped individually;
// a missing required column fails the whole parse with a *StructureError.
func (n *PriceNormalizer) Normalize(raw []byte) ([]models.PriceObservation, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyInput
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, &StructureError{Source: priceSource, Reason: "unreadable header", Err: err}
	}

	cols, err := locatePriceColumns(header)
	if err != nil {
		return nil, err
	}
	if cols.fine >= 0 {
		n.logger.Debug("[price] Using %q as the granular region column", cols.fineName)
	}

	var (
		out     []models.PriceObservation
		total   int
		badDate int
	)

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				total++
				continue
			}
			return nil, &StructureError{Source: priceSource, Reason: "read failed", Err: err}
		}
		total++

		obs, ok, dateOK := buildPriceObservation(record, cols)
		if !dateOK {
			badDate++
		}
		if ok {
			out = append(out, obs)
		}
	}

	n.logger.Info("[price] Normalized %d → %d rows (dropped %d, %d with unparseable dates)",
		total, len(out), total-len(out), badDate)

	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}

func locatePriceColumns(header []string) (priceColumns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	cols := priceColumns{fine: -1}
	var missing []string
	for _, req := range []struct {
		name string
		dst  *int
	}{
		{colDate, &cols.date},
		{colRegionName, &cols.parent},
		{colAveragePrice, &cols.price},
		{colIndex, &cols.index},
	} {
		i, ok := index[req.name]
		if !ok {
			missing = append(missing, req.name)
			continue
		}
		*req.dst = i
	}
	if len(missing) > 0 {
		return cols, &StructureError{Source: priceSource, Reason: "missing required columns " + strings.Join(missing, ", ")}
	}

	for _, name := range fineRegionColumns {
		if i, ok := index[name]; ok {
			cols.fine = i
			cols.fineName = header[i]
			break
		}
	}
	return cols, nil
}

// buildPriceObservation reports ok when every required value is present
// and dateOK=false when the date cell could not be parsed.
func buildPriceObservation(record []string, cols priceColumns) (obs models.PriceObservation, ok, dateOK bool) {
	cell := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return normaliseText(record[i])
	}

	date, dateOK := parseDate(cell(cols.date))
	if !dateOK {
		return obs, false, false
	}

	parent := cell(cols.parent)
	region := parent
	if fine := cell(cols.fine); fine != "" {
		region = fine
	}
	if parent == "" || region == "" {
		return obs, false, true
	}

	price, okPrice := parseFloat(cell(cols.price))
	index, okIndex := parseFloat(cell(cols.index))
	if !okPrice || !okIndex {
		return obs, false, true
	}

	return models.PriceObservation{
		Date:         date,
		ParentRegion: parent,
		RegionName:   region,
		AveragePrice: price,
		Index:        index,
		Year:         date.Year(),
	}, true, true
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
