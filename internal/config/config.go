// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	Feed      FeedConfig
	Analytics AnalyticsConfig
	Archive   ArchiveConfig
}

// FeedConfig describes where the correlation feed comes from
type FeedConfig struct {
	URL           string // Remote feed endpoint
	File          string // Local feed file, used when URL is empty
	DirectoryFile string // Optional company directory JSON
	RetryAttempts int
	RetryDelay    time.Duration
	CacheTTL      time.Duration // 0 disables the feed cache
	RefreshCron   string        // 6-field cron spec (with seconds)
	FetchTimeout  time.Duration
}

// AnalyticsConfig tunes snapshot construction
type AnalyticsConfig struct {
	UniverseLimit     int // 0 = unbounded
	ClampCorrelations bool
	KMeansSeed        *int64 // nil = time-seeded
}

// ArchiveConfig holds S3/R2 snapshot archive settings
type ArchiveConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	RetentionDays   int
	RotationCron    string
}

// Enabled reports whether archiving is configured
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("CORRSCOPE_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("GO_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Feed: FeedConfig{
			URL:           getEnv("CORRELATION_FEED_URL", ""),
			File:          getEnv("CORRELATION_FEED_FILE", ""),
			DirectoryFile: getEnv("COMPANY_DIRECTORY_FILE", ""),
			RetryAttempts: getEnvAsInt("FEED_RETRY_ATTEMPTS", 3),
			RetryDelay:    time.Duration(getEnvAsInt("FEED_RETRY_DELAY_MS", 1000)) * time.Millisecond,
			CacheTTL:      time.Duration(getEnvAsInt("FEED_CACHE_TTL_MINUTES", 0)) * time.Minute,
			RefreshCron:   getEnv("REFRESH_SCHEDULE", "0 0 6 * * *"),
			FetchTimeout:  time.Duration(getEnvAsInt("FEED_FETCH_TIMEOUT_SECONDS", 120)) * time.Second,
		},
		Analytics: AnalyticsConfig{
			UniverseLimit:     getEnvAsInt("UNIVERSE_LIMIT", 0),
			ClampCorrelations: getEnvAsBool("CLAMP_CORRELATIONS", true),
			KMeansSeed:        getEnvAsInt64Ptr("KMEANS_SEED"),
		},
		Archive: ArchiveConfig{
			Bucket:          getEnv("ARCHIVE_BUCKET", ""),
			Endpoint:        getEnv("ARCHIVE_ENDPOINT", ""),
			Region:          getEnv("ARCHIVE_REGION", "auto"),
			AccessKeyID:     getEnv("ARCHIVE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("ARCHIVE_PREFIX", "corrscope/"),
			RetentionDays:   getEnvAsInt("ARCHIVE_RETENTION_DAYS", 30),
			RotationCron:    getEnv("ARCHIVE_ROTATION_SCHEDULE", "0 30 3 * * *"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Feed.URL == "" && c.Feed.File == "" {
		return errors.New("either CORRELATION_FEED_URL or CORRELATION_FEED_FILE is required")
	}
	if c.Feed.RetryAttempts < 1 {
		return fmt.Errorf("FEED_RETRY_ATTEMPTS must be at least 1, got %d", c.Feed.RetryAttempts)
	}
	if c.Feed.RetryDelay < 0 {
		return fmt.Errorf("FEED_RETRY_DELAY_MS must not be negative")
	}
	if c.Analytics.UniverseLimit < 0 {
		return fmt.Errorf("UNIVERSE_LIMIT must not be negative, got %d", c.Analytics.UniverseLimit)
	}
	if c.Archive.Enabled() && (c.Archive.AccessKeyID == "" || c.Archive.SecretAccessKey == "") {
		return errors.New("ARCHIVE_ACCESS_KEY_ID and ARCHIVE_SECRET_ACCESS_KEY are required when ARCHIVE_BUCKET is set")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64Ptr(key string) *int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return &intVal
		}
	}
	return nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
