// Package config provides centralized configuration management for ratingprep.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables; CLI flags
// override the Convert and Normalize groups.
type Config struct {
	Convert   ConvertConfig
	Normalize NormalizeConfig
	Database  DatabaseConfig
	Server    ServerConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ConvertConfig holds source and cache file settings.
type ConvertConfig struct {
	// InputPath is the raw delimited source file
	InputPath string `env:"INPUT_PATH" default:"data/MachineLearningRating_v3.txt"`

	// OutputPath is the comma-separated cache file
	OutputPath string `env:"OUTPUT_PATH" default:"data/MachineLearningRating_v3.csv"`

	// SourceDelimiter is a single character or a name: pipe, comma, tab, semicolon
	SourceDelimiter string `env:"SOURCE_DELIMITER" default:"|"`

	// SourceEncoding is utf-8, utf-8-lossy, latin1 or windows-1252
	SourceEncoding string `env:"SOURCE_ENCODING" default:"utf-8"`
}

// NormalizeConfig holds type normalization settings.
type NormalizeConfig struct {
	// Catalog is the registered rule catalog to apply (default: insurance)
	Catalog string `env:"CATALOG" default:"insurance"`

	// CategoryThreshold is the distinct/rows ratio below which a column is categorical
	CategoryThreshold float64 `env:"CATEGORY_THRESHOLD" default:"0.10"`
}

// DatabaseConfig holds Postgres export settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Only the export command needs it.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// ExportTable is the destination table name
	ExportTable string `env:"EXPORT_TABLE" default:"machine_learning_rating"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including draining active jobs
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`

	// MaxUploadSize is the maximum request body in bytes (default: 512MiB)
	MaxUploadSize int64 `env:"SERVER_MAX_UPLOAD_SIZE" default:"536870912"`

	// MaxConcurrent is the maximum number of conversions in memory at once
	MaxConcurrent int `env:"SERVER_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long a request waits for a job slot
	MaxWaitTime time.Duration `env:"SERVER_MAX_WAIT_TIME" default:"10s"`
}

// SecurityConfig holds HTTP access settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP / X-Forwarded-For headers are honoured
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects /api requests without a valid X-API-Key
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
