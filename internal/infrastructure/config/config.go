package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	// Server configuration
	Environment string
	Port        int
	MetricsPort int

	// Storage configuration
	StorageDriver   string
	DatabaseURL     string
	SQLitePath      string
	MigrationsPath  string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Pagination
	DefaultPageSize int
	MaxPageSize     int

	// Observability
	OTLPEndpoint        string
	PrometheusNamespace string
	LogLevel            string
	LogFormat           string // json or console

	// Graceful Shutdown
	ShutdownTimeout time.Duration

	// Feature Flags
	EnableMetrics bool
	EnableTracing bool

	// Timeouts
	RequestTimeout  time.Duration
	DatabaseTimeout time.Duration
}

func Load() (*Config, error) {
	// Load .env file if exists (for local development)
	_ = godotenv.Load()

	cfg := &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnvAsInt("PORT", 8080),
		MetricsPort: getEnvAsInt("METRICS_PORT", 9090),

		// Storage
		StorageDriver:   getEnv("STORAGE_DRIVER", DriverPostgres),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SQLitePath:      getEnv("SQLITE_PATH", "./data/todos.db"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./internal/infrastructure/postgres/migrations"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),

		// Pagination
		DefaultPageSize: getEnvAsInt("DEFAULT_PAGE_SIZE", 20),
		MaxPageSize:     getEnvAsInt("MAX_PAGE_SIZE", 100),

		// Observability
		OTLPEndpoint:        getEnv("OTLP_ENDPOINT", "localhost:4317"),
		PrometheusNamespace: getEnv("PROMETHEUS_NAMESPACE", "todo_service"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),

		// Graceful Shutdown
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		// Feature Flags
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		EnableTracing: getEnvAsBool("ENABLE_TRACING", false),

		// Timeouts
		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseTimeout: getEnvAsDuration("DATABASE_TIMEOUT", 10*time.Second),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverMemory:
		// Nothing to configure.
	default:
		return fmt.Errorf("invalid storage driver: %s (valid: postgres, sqlite, memory)", c.StorageDriver)
	}

	// Port validation
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}

	// Connection pool validation
	if c.MaxOpenConns < c.MaxIdleConns {
		return fmt.Errorf("max_open_conns (%d) must be >= max_idle_conns (%d)",
			c.MaxOpenConns, c.MaxIdleConns)
	}

	// Pagination validation
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("default page size (%d) must be in [1,%d]",
			c.DefaultPageSize, c.MaxPageSize)
	}

	// Log level validation
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
	}

	// Log format validation
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("invalid log format: %s (valid: json, console)", c.LogFormat)
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Timeout         time.Duration
}

func (c *Config) GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             c.DatabaseURL,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		Timeout:         c.DatabaseTimeout,
	}
}
