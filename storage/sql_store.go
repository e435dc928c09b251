package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"hpi-affordability/models"
	"hpi-affordability/utils"
)

const insertBatchSize = 500

var tableNameRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLStore keeps the affordability table in PostgreSQL or SQLite.
type SQLStore struct {
	db     *sqlx.DB
	flavor sqlbuilder.Flavor
	logger *utils.Logger
}

// Destination is a parsed DATABASE_URL.
type Destination struct {
	Driver string
	DSN    string
	Flavor sqlbuilder.Flavor
}

// ParseDatabaseURL maps a SQLAlchemy-style database URL onto a Go driver.
// postgres://, postgresql:// and postgresql+<driver>:// use lib/pq;
// sqlite:///relative.db, sqlite:////absolute.db and sqlite://path use
// the pure-Go SQLite driver. A bare key=value string is a Postgres DSN.
// Postgres DSNs without an sslmode get sslMode when it is non-empty.
func ParseDatabaseURL(raw, sslMode string) (Destination, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Destination{}, fmt.Errorf("storage: empty database URL")
	}

	if rest, ok := strings.CutPrefix(raw, "sqlite:"); ok {
		path := rest
		switch {
		case strings.HasPrefix(rest, "///"):
			path = rest[3:]
		case strings.HasPrefix(rest, "//"):
			path = rest[2:]
		}
		if path == "" {
			path = ":memory:"
		}
		return Destination{Driver: "sqlite", DSN: path, Flavor: sqlbuilder.SQLite}, nil
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		if strings.Contains(raw, "=") {
			dsn := raw
			if sslMode != "" && !hasKeyword(raw, "sslmode") {
				dsn += " sslmode=" + sslMode
			}
			return Destination{Driver: "postgres", DSN: dsn, Flavor: sqlbuilder.PostgreSQL}, nil
		}
		return Destination{}, fmt.Errorf("storage: unrecognised database URL %q", redact(raw))
	}

	base, _, _ := strings.Cut(strings.ToLower(scheme), "+")
	switch base {
	case "postgres", "postgresql":
		dsn := "postgres://" + rest
		u, err := url.Parse(dsn)
		if err != nil {
			return Destination{}, fmt.Errorf("storage: invalid database URL: %w", err)
		}
		if sslMode != "" && !u.Query().Has("sslmode") {
			sep := "?"
			if u.RawQuery != "" {
				sep = "&"
			}
			dsn += sep + "sslmode=" + url.QueryEscape(sslMode)
		}
		return Destination{Driver: "postgres", DSN: dsn, Flavor: sqlbuilder.PostgreSQL}, nil
	default:
		return Destination{}, fmt.Errorf("storage: unsupported database scheme %q", scheme)
	}
}

// NewSQLStore opens the database named by databaseURL and waits for it to
// answer a ping, retrying with back-off up to retries times.
func NewSQLStore(ctx context.Context, databaseURL, sslMode string, retries int, logger *utils.Logger) (*SQLStore, error) {
	dest, err := ParseDatabaseURL(databaseURL, sslMode)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(dest.Driver, dest.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dest.Driver, err)
	}
	if dest.Driver == "sqlite" {
		// One writer; also keeps :memory: databases on a single connection.
		db.SetMaxOpenConns(1)
	}

	retry := &utils.RetryConfig{MaxAttempts: retries, BaseDelay: 2 * time.Second, Logger: logger}
	if err := retry.Do(ctx, "database ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}

	logger.Info("[store] Connected to %s database", dest.Driver)
	return &SQLStore{db: db, flavor: dest.Flavor, logger: logger}, nil
}

// ReplaceTable drops and recreates the table and loads rows, all inside
// one transaction.
func (s *SQLStore) ReplaceTable(ctx context.Context, name string, rows []models.AffordabilityRow) (err error) {
	if err := validateTableName(name); err != nil {
		return err
	}
	table := s.flavor.Quote(name)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("storage: drop %s: %w", name, err)
	}
	if _, err = tx.ExecContext(ctx, s.createTableSQL(table)); err != nil {
		return fmt.Errorf("storage: create %s: %w", name, err)
	}

	for i := 0; i < len(rows); i += insertBatchSize {
		end := min(i+insertBatchSize, len(rows))
		if err = s.insertBatch(ctx, tx, table, rows[i:end]); err != nil {
			return fmt.Errorf("storage: insert into %s: %w", name, err)
		}
	}

	index := s.flavor.Quote(name + "_region_date_idx")
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("CREATE INDEX %s ON %s (region_name, date)", index, table)); err != nil {
		return fmt.Errorf("storage: index %s: %w", name, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit %s: %w", name, err)
	}

	s.logger.Info("[store] Replaced table %q with %d rows", name, len(rows))
	return nil
}

func (s *SQLStore) createTableSQL(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE %s (
			date                  DATE             NOT NULL,
			region_name           TEXT             NOT NULL,
			average_price         DOUBLE PRECISION NOT NULL,
			%s                    DOUBLE PRECISION NOT NULL,
			average_annual_salary DOUBLE PRECISION,
			affordability_ratio   DOUBLE PRECISION
		)`, table, s.flavor.Quote("index"))
}

func (s *SQLStore) insertBatch(ctx context.Context, tx *sqlx.Tx, table string, batch []models.AffordabilityRow) error {
	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("date", "region_name", "average_price", s.flavor.Quote("index"), "average_annual_salary", "affordability_ratio")
	for _, r := range batch {
		ib.Values(r.DateString(), r.RegionName, r.AveragePrice, r.Index, nullable(r.AverageAnnualSalary), nullable(r.AffordabilityRatio))
	}

	query, args := ib.Build()
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// Regions returns the distinct region names in the table, sorted.
func (s *SQLStore) Regions(ctx context.Context, name string) ([]string, error) {
	if err := validateTableName(name); err != nil {
		return nil, err
	}

	sb := s.flavor.NewSelectBuilder()
	sb.Select("region_name").Distinct()
	sb.From(s.flavor.Quote(name))
	sb.OrderBy("region_name")

	query, args := sb.Build()
	var regions []string
	if err := s.db.SelectContext(ctx, &regions, query, args...); err != nil {
		return nil, fmt.Errorf("storage: list regions: %w", err)
	}
	return regions, nil
}

type rowRecord struct {
	Date         string          `db:"date"`
	RegionName   string          `db:"region_name"`
	AveragePrice float64         `db:"average_price"`
	Index        float64         `db:"index"`
	Salary       sql.NullFloat64 `db:"average_annual_salary"`
	Ratio        sql.NullFloat64 `db:"affordability_ratio"`
}

// RegionRows returns every row for region ordered by date. An unknown
// region yields an empty slice.
func (s *SQLStore) RegionRows(ctx context.Context, name, region string) ([]models.AffordabilityRow, error) {
	if err := validateTableName(name); err != nil {
		return nil, err
	}

	sb := s.flavor.NewSelectBuilder()
	sb.Select(
		s.dateExpr()+" AS date",
		"region_name",
		"average_price",
		s.flavor.Quote("index"),
		"average_annual_salary",
		"affordability_ratio",
	)
	sb.From(s.flavor.Quote(name))
	sb.Where(sb.Equal("region_name", region))
	sb.OrderBy("date")

	query, args := sb.Build()
	var records []rowRecord
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("storage: rows for %q: %w", region, err)
	}

	out := make([]models.AffordabilityRow, 0, len(records))
	for _, rec := range records {
		d, err := time.Parse("2006-01-02", rec.Date)
		if err != nil {
			return nil, fmt.Errorf("storage: bad date %q for %q: %w", rec.Date, region, err)
		}
		out = append(out, models.AffordabilityRow{
			Date:                d,
			RegionName:          rec.RegionName,
			AveragePrice:        rec.AveragePrice,
			Index:               rec.Index,
			AverageAnnualSalary: fromNull(rec.Salary),
			AffordabilityRatio:  fromNull(rec.Ratio),
		})
	}
	return out, nil
}

func (s *SQLStore) dateExpr() string {
	if s.flavor == sqlbuilder.SQLite {
		return "STRFTIME('%Y-%m-%d', date)"
	}
	return "TO_CHAR(date, 'YYYY-MM-DD')"
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func validateTableName(name string) error {
	if !tableNameRegexp.MatchString(name) {
		return fmt.Errorf("storage: invalid table name %q", name)
	}
	return nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func hasKeyword(dsn, key string) bool {
	for _, field := range strings.Fields(dsn) {
		if k, _, ok := strings.Cut(field, "="); ok && strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// redact hides anything that looks like a password in a connection string.
func redact(s string) string {
	if i := strings.Index(s, "password="); i >= 0 {
		return s[:i] + "password=***"
	}
	return s
}
