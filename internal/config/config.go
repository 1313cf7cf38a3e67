// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL of the host site. Used to build
	// edit/view links in subject display tags.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Tracking holds the audit-capture policy knobs.
	Tracking TrackingConfig

	// API holds settings for the ingest/admin HTTP API.
	API APIConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so container
// orchestrators can manage each independently. If DATABASE_URL is set, it
// takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	// User is the MariaDB username (default: "logify").
	User string

	// Password is the MariaDB password (default: "logify").
	Password string

	// Name is the database name (default: "logify").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// Host/User/Password/Name fields using the driver's Config.FormatDSN()
// to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
// Allows users to set DB_HOST=mydb (gets :3306) or DB_HOST=mydb:3307 (as-is).
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// TrackingConfig holds the audit-capture policy: which actors are tracked,
// how long recurring activity coalesces into one event, and how long events
// are retained before cleanup.
type TrackingConfig struct {
	// Roles is the set of actor roles whose actions are recorded. An actor
	// is tracked if any of their roles appears here. Parsed from a
	// comma-separated env var (default: "administrator,editor").
	Roles map[string]bool

	// TrackAnonymous records actions that have no authenticated actor
	// (e.g., failed logins from unknown users) when true.
	TrackAnonymous bool

	// CoalesceWindow is the recency threshold for merging repeat
	// observations of the same (event type, subject) pair into one event
	// instead of writing a new row (default: 20m).
	CoalesceWindow time.Duration

	// RetentionDays is how long events are kept before the periodic
	// cleanup deletes them. Zero disables cleanup.
	RetentionDays int

	// CleanupInterval is how often the retention sweep runs.
	CleanupInterval time.Duration

	// Timezone is the IANA zone name event timestamps are recorded in
	// (default: "UTC"). Mirrors the host site's configured zone.
	Timezone string

	// Location is the loaded *time.Location for Timezone. Populated by Load.
	Location *time.Location
}

// APIConfig holds settings for the HTTP API surface.
type APIConfig struct {
	// KeyHash is the bcrypt hash of the bearer API key the host presents
	// on ingest and admin requests. Empty disables authentication --
	// acceptable in development only.
	KeyHash string

	// RateLimit is the per-IP request ceiling per minute on the API group.
	RateLimit int
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing or malformed.
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "logify"),
			Password:        getEnv("DB_PASSWORD", "logify"),
			Name:            getEnv("DB_NAME", "logify"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Tracking: TrackingConfig{
			Roles:           ParseRoleSet(getEnv("TRACKED_ROLES", "administrator,editor")),
			TrackAnonymous:  getEnvBool("TRACK_ANONYMOUS", true),
			CoalesceWindow:  getEnvDuration("COALESCE_WINDOW", 20*time.Minute),
			RetentionDays:   getEnvInt("RETENTION_DAYS", 90),
			CleanupInterval: getEnvDuration("CLEANUP_INTERVAL", time.Hour),
			Timezone:        getEnv("SITE_TIMEZONE", "UTC"),
		},

		API: APIConfig{
			KeyHash:   getEnv("API_KEY_HASH", ""),
			RateLimit: getEnvInt("API_RATE_LIMIT", 300),
		},
	}

	loc, err := time.LoadLocation(cfg.Tracking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SITE_TIMEZONE %q: %w", cfg.Tracking.Timezone, err)
	}
	cfg.Tracking.Location = loc

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.API.KeyHash == "" {
			return nil, fmt.Errorf("API_KEY_HASH is required in production")
		}
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// ParseRoleSet splits a comma-separated role list into a lookup set.
// Role names are lowercased and trimmed; empty entries are dropped.
func ParseRoleSet(raw string) map[string]bool {
	set := make(map[string]bool)
	for _, role := range strings.Split(raw, ",") {
		role = strings.ToLower(strings.TrimSpace(role))
		if role != "" {
			set[role] = true
		}
	}
	return set
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvBool reads a boolean env var ("true"/"false") or returns the default.
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "20m") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
