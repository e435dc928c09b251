package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"DATABASE_URL", "POSTGRES_SSLMODE", "TABLE_NAME", "DB_CONNECT_RETRIES", "PRICE_DATA_URL", "SALARY_DATA_URL",
		"FETCH_TIMEOUT", "FETCH_MAX_REDIRECTS", "FETCH_MAX_BODY_MB", "OPERATING_YEAR",
		"USE_FALLBACK_DATA", "CSV_OUTPUT_DIR", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, DefaultTableName, cfg.TableName)
	assert.Equal(t, "disable", cfg.PostgresSSLMode)
	assert.Equal(t, DefaultPriceURL, cfg.PriceURL)
	assert.Equal(t, DefaultSalaryURL, cfg.SalaryURL)
	assert.Equal(t, 5*time.Minute, cfg.FetchTimeout)
	assert.Equal(t, 10, cfg.MaxRedirects)
	assert.Equal(t, int64(512)<<20, cfg.MaxBodyBytes)
	assert.Equal(t, 2025, cfg.OperatingYear)
	assert.Equal(t, 5, cfg.DBConnectRetries)
	assert.False(t, cfg.UseFallbackData)
	assert.Empty(t, cfg.CSVOutputDir)
	assert.Equal(t, "info", cfg.LogLevel)

	assert.ErrorIs(t, cfg.Validate(), ErrMissingDatabaseURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:///./hpi.db")
	t.Setenv("TABLE_NAME", "hpi_test")
	t.Setenv("POSTGRES_SSLMODE", "verify-full")
	t.Setenv("FETCH_TIMEOUT", "30s")
	t.Setenv("FETCH_MAX_BODY_MB", "8")
	t.Setenv("OPERATING_YEAR", "2024")
	t.Setenv("USE_FALLBACK_DATA", "true")
	t.Setenv("CSV_OUTPUT_DIR", "out")
	t.Setenv("DB_CONNECT_RETRIES", "not-a-number")

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "hpi_test", cfg.TableName)
	assert.Equal(t, "verify-full", cfg.PostgresSSLMode)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, int64(8)<<20, cfg.MaxBodyBytes)
	assert.Equal(t, 2024, cfg.OperatingYear)
	assert.True(t, cfg.UseFallbackData)
	assert.Equal(t, "out", cfg.CSVOutputDir)
	assert.Equal(t, 5, cfg.DBConnectRetries, "unparseable values fall back to the default")
}

func TestValidateRejectsBlankURL(t *testing.T) {
	cfg := &Config{DatabaseURL: "   "}
	assert.ErrorIs(t, cfg.Validate(), ErrMissingDatabaseURL)
}
