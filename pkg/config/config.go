package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production, test

	// Database (optional, only for DATA_SOURCE=postgres)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Data Access Port
	DataSource DataSourceConfig

	// Screening pipeline
	Screener ScreenerConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	Prefix   string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DataSourceConfig selects the Data Access Port implementation
type DataSourceConfig struct {
	Kind        string // fixture, postgres, http
	FixturePath string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
}

// ScreenerConfig holds the knobs of the screening run
type ScreenerConfig struct {
	MaxParallel   int
	RatePerSecond float64
	RateBurst     int
	UnitTimeout   time.Duration
	CacheTTL      time.Duration
	BatchSize     int
	RubricsPath   string
	Schedule      string // cron (with seconds) for the scheduled screen
	SharedRate    bool   // use the Redis sliding window instead of a local token bucket
}

// Data source kinds
const (
	DataSourceFixture  = "fixture"
	DataSourcePostgres = "postgres"
	DataSourceHTTP     = "http"
)

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Prefix:   getEnv("REDIS_PREFIX", "screener"),
		},

		DataSource: DataSourceConfig{
			Kind:        strings.ToLower(getEnv("DATA_SOURCE", DataSourceFixture)),
			FixturePath: getEnv("DATA_FIXTURE_PATH", "testdata/universe.yaml"),
			BaseURL:     getEnv("DATA_BASE_URL", ""),
			APIKey:      getEnv("DATA_API_KEY", ""),
			Timeout:     getEnvAsDuration("DATA_TIMEOUT", "20s"),
		},

		Screener: ScreenerConfig{
			MaxParallel:   getEnvAsInt("SCREENER_MAX_PARALLEL", 8),
			RatePerSecond: getEnvAsFloat("SCREENER_RATE_PER_SEC", 5),
			RateBurst:     getEnvAsInt("SCREENER_RATE_BURST", 5),
			UnitTimeout:   getEnvAsDuration("SCREENER_UNIT_TIMEOUT", "30s"),
			CacheTTL:      getEnvAsDuration("SCREENER_CACHE_TTL", "12h"),
			BatchSize:     getEnvAsInt("SCREENER_BATCH_SIZE", 10),
			RubricsPath:   getEnv("SCREENER_RUBRICS_PATH", ""),
			Schedule:      getEnv("SCREENER_SCHEDULE", "0 0 9 * * 1-5"),
			SharedRate:    getEnvAsBool("SCREENER_SHARED_RATE", false),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	switch c.Env {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("ENV must be one of: development, staging, production, test")
	}

	switch c.DataSource.Kind {
	case DataSourceFixture:
		if c.DataSource.FixturePath == "" {
			return fmt.Errorf("DATA_FIXTURE_PATH is required for DATA_SOURCE=fixture")
		}
	case DataSourcePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for DATA_SOURCE=postgres")
		}
	case DataSourceHTTP:
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("DATA_BASE_URL is required for DATA_SOURCE=http")
		}
	default:
		return fmt.Errorf("DATA_SOURCE must be one of: fixture, postgres, http")
	}

	if c.Screener.MaxParallel < 1 {
		return fmt.Errorf("SCREENER_MAX_PARALLEL must be >= 1")
	}
	if c.Screener.RateBurst < 1 {
		return fmt.Errorf("SCREENER_RATE_BURST must be >= 1")
	}
	if c.Screener.BatchSize < 1 {
		return fmt.Errorf("SCREENER_BATCH_SIZE must be >= 1")
	}
	if c.Screener.SharedRate && !c.Redis.Enabled {
		return fmt.Errorf("SCREENER_SHARED_RATE requires REDIS_ENABLED=true")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
