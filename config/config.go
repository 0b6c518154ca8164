package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	Port string
	Env  string

	// BlobDir is the root of the upload bucket on local disk.
	BlobDir string
	// RejectsDir receives one CSV per import listing skipped rows. Empty disables it.
	RejectsDir string

	ImportBatchSize int
	ImportSource    string
	ImportEditor    string

	EnrichListings bool
	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	ChromeBin      string

	CORSOrigins []string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "optimus"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "optimus"),
		PostgresDB:       getEnv("POSTGRES_DB", "optimus"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		BlobDir:    getEnv("BLOB_DIR", "./data/blobs"),
		RejectsDir: getEnv("REJECTS_DIR", ""),

		ImportBatchSize: getEnvInt("IMPORT_BATCH_SIZE", 500),
		ImportSource:    getEnv("IMPORT_SOURCE", "csv_import"),
		ImportEditor:    getEnv("IMPORT_EDITOR", "csv_import"),

		EnrichListings: getEnvBool("ENRICH_LISTINGS", false),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		ChromeBin:      getEnv("CHROME_BIN", ""),

		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// RateLimit is the minimum spacing between listing page visits.
func (c *Config) RateLimit() time.Duration {
	return time.Duration(c.RateLimitMs) * time.Millisecond
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
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

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, entry := range strings.Split(val, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
