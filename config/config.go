package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPriceURL = "https://publicdata.landregistry.gov.uk/market-trend-data/house-price-index-data/UK-HPI-full-file-2025-06.csv"
	// ASHE table 8 (place of work by region), weekly pay.
	DefaultSalaryURL = "https://www.ons.gov.uk/file?uri=/employmentandlabourmarket/peopleinwork/earningsandworkinghours/datasets/placeofworkbyukregionashetable8/2025provisional/ashetable8provisional2025.xlsx"
	DefaultTableName = "uk_hpi_plus_affordability"
)

// ErrMissingDatabaseURL is returned by Validate when no destination is configured.
var ErrMissingDatabaseURL = errors.New("config: DATABASE_URL is not set")

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL      string
	PostgresSSLMode  string
	TableName        string
	DBConnectRetries int

	PriceURL      string
	SalaryURL     string
	FetchTimeout  time.Duration
	MaxRedirects  int
	MaxBodyBytes  int64
	OperatingYear int

	UseFallbackData bool
	CSVOutputDir    string
	LogLevel        string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		TableName:        getEnv("TABLE_NAME", DefaultTableName),
		DBConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),

		PriceURL:      getEnv("PRICE_DATA_URL", DefaultPriceURL),
		SalaryURL:     getEnv("SALARY_DATA_URL", DefaultSalaryURL),
		FetchTimeout:  getEnvDuration("FETCH_TIMEOUT", 5*time.Minute),
		MaxRedirects:  getEnvInt("FETCH_MAX_REDIRECTS", 10),
		MaxBodyBytes:  int64(getEnvInt("FETCH_MAX_BODY_MB", 512)) << 20,
		OperatingYear: getEnvInt("OPERATING_YEAR", 2025),

		UseFallbackData: getEnvBool("USE_FALLBACK_DATA", false),
		CSVOutputDir:    getEnv("CSV_OUTPUT_DIR", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports configuration that makes a run impossible.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
