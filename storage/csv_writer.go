package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"hpi-affordability/models"
)

var csvHeader = []string{
	"date", "region_name", "average_price", "index", "average_annual_salary", "affordability_ratio",
}

// CSVWriter exports committed snapshots as CSV files in a directory, one
// file per table name. It is safe for concurrent use.
type CSVWriter struct {
	mu  sync.Mutex
	dir string
}

// NewCSVWriter creates the output directory if needed.
func NewCSVWriter(dir string) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVWriter{dir: dir}, nil
}

// Path returns the file a table is written to.
func (c *CSVWriter) Path(name string) string {
	return filepath.Join(c.dir, name+".csv")
}

// ReplaceTable writes rows to a temporary file in the same directory and
// renames it over the previous snapshot.
func (c *CSVWriter) ReplaceTable(ctx context.Context, name string, rows []models.AffordabilityRow) error {
	if err := validateTableName(name); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tmp, err := os.CreateTemp(c.dir, name+".*.csv.tmp")
	if err != nil {
		return fmt.Errorf("csv: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writeRows(ctx, tmp, rows); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csv: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, c.Path(name)); err != nil {
		return fmt.Errorf("csv: replace %s: %w", c.Path(name), err)
	}
	return nil
}

func writeRows(ctx context.Context, f *os.File, rows []models.AffordabilityRow) error {
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for i, r := range rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		record := []string{
			r.DateString(),
			r.RegionName,
			formatFloat(r.AveragePrice),
			formatFloat(r.Index),
			formatOptional(r.AverageAnnualSalary),
			formatOptional(r.AffordabilityRatio),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	return f.Sync()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
