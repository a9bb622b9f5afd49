// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Upload   UploadConfig
	Probe    ProbeConfig
	Pricing  PricingConfig
	Schema   SchemaConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response. Image
	// probing makes ingest slow, so the default is generous (default: 5m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// StoreConfig selects and tunes the record store.
type StoreConfig struct {
	// Driver is memory, sqlite or postgres (default: sqlite)
	Driver string `env:"STORE_DRIVER" default:"sqlite"`

	// SQLitePath is the database file for the sqlite driver
	SQLitePath string `env:"STORE_SQLITE_PATH" default:"data/smartsync.db"`

	// URL is the PostgreSQL connection string, required for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UploadConfig holds catalog import settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of parallel runs (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a run slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single run (default: 10m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"10m"`

	// Sheet is the XLSX sheet to read; empty reads the first sheet
	Sheet string `env:"UPLOAD_XLSX_SHEET"`
}

// ProbeConfig tunes the image reachability probe.
type ProbeConfig struct {
	// Enabled turns network probing on. When off, https references outside
	// the trusted hosts are not callable (default: true)
	Enabled bool `env:"PROBE_ENABLED" default:"true"`

	// Timeout bounds one probe, HEAD and GET together (default: 5s)
	Timeout time.Duration `env:"PROBE_TIMEOUT" default:"5s"`

	// Concurrency is the number of references classified in parallel (default: 8)
	Concurrency int `env:"PROBE_CONCURRENCY" default:"8"`

	// RatePerHost is probes per second allowed against one host (default: 10)
	RatePerHost float64 `env:"PROBE_RATE_PER_HOST" default:"10"`

	// Burst is the per-host burst size (default: 5)
	Burst int `env:"PROBE_BURST" default:"5"`

	// TrustedHosts are accepted without a probe when the path has an image extension
	TrustedHosts []string `env:"PROBE_TRUSTED_HOSTS" default:"images.unsplash.com,cdn.shopify.com"`

	// UserAgent is sent with every probe
	UserAgent string `env:"PROBE_USER_AGENT" default:"smartsync-image-probe/1.0"`
}

// PricingConfig controls price formatting.
type PricingConfig struct {
	// Locale is a BCP 47 tag used for digit grouping (default: en-US)
	Locale string `env:"PRICE_LOCALE" default:"en-US"`

	// Currency is an ISO 4217 code (default: USD)
	Currency string `env:"PRICE_CURRENCY" default:"USD"`

	// Symbol prefixes formatted prices; empty uses the currency code (default: $)
	Symbol string `env:"PRICE_SYMBOL" default:"$"`
}

// SchemaConfig locates the field schema.
type SchemaConfig struct {
	// File is a YAML schema file; empty uses the built-in catalog schema
	File string `env:"SCHEMA_FILE"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for ingest endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey gates every POST route behind X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
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
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
