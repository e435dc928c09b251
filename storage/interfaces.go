package storage

import (
	"context"

	"hpi-affordability/models"
)

// TableWriter commits a whole snapshot under a table name. Readers must
// observe either the previous snapshot or the new one, never a mix.
type TableWriter interface {
	ReplaceTable(ctx context.Context, name string, rows []models.AffordabilityRow) error
}

// TableStore is the destination table store: atomic replace plus the
// read queries the serving layer issues.
type TableStore interface {
	TableWriter
	Regions(ctx context.Context, name string) ([]string, error)
	RegionRows(ctx context.Context, name, region string) ([]models.AffordabilityRow, error)
	Close() error
}
