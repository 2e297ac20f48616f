package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

const defaultJWTSecret = "changeme"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
	Import        ImportConfig
	Storage       StorageConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	AllowedOrigins     []string
	RateLimitPerSecond int
	RateLimitBurst     int
	// TrustedProxies lists proxy addresses or CIDRs whose X-Forwarded-For is
	// honoured. Empty means the TCP peer is always the client.
	TrustedProxies  []string
	ShutdownTimeout time.Duration
}

// TrustedProxyPrefixes parses TrustedProxies; a bare address is a single-host prefix.
func (c *ServerConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, entry := range c.TrustedProxies {
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
}

type AuthConfig struct {
	JWTSecret string
	Disabled  bool // local development only
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
	LogLevel       string
	LogFormat      string // "json" or "text"
}

type ImportConfig struct {
	MaxUploadBytes    int64
	Timeout           time.Duration
	MaxConcurrentPDFs int
	ArchiveStatements bool
}

type StorageConfig struct {
	Type          string // "local" or "gcs"
	LocalPath     string
	GCSBucket     string
	GCSPrefix     string
	RetentionDays int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 10),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 20),
			TrustedProxies:     getEnvAsList("SERVER_TRUSTED_PROXIES", nil),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "expenses-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("POSTGRES_MAX_CONNS", 10),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", defaultJWTSecret),
			Disabled:  getEnvAsBool("AUTH_DISABLED", false),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
		},
		Import: ImportConfig{
			MaxUploadBytes:    int64(getEnvAsInt("IMPORT_MAX_UPLOAD_BYTES", 10<<20)),
			Timeout:           getEnvAsDuration("IMPORT_TIMEOUT", 30*time.Second),
			MaxConcurrentPDFs: getEnvAsInt("IMPORT_MAX_CONCURRENT_PDFS", 4),
			ArchiveStatements: getEnvAsBool("IMPORT_ARCHIVE_STATEMENTS", true),
		},
		Storage: StorageConfig{
			Type:          getEnv("STORAGE_TYPE", "local"),
			LocalPath:     getEnv("STORAGE_LOCAL_PATH", "./uploads"),
			GCSBucket:     getEnv("STORAGE_GCS_BUCKET", ""),
			GCSPrefix:     getEnv("STORAGE_GCS_PREFIX", "statements"),
			RetentionDays: getEnvAsInt("STORAGE_RETENTION_DAYS", 365),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no safe default
func (c *Config) Validate() error {
	if !c.Auth.Disabled && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == defaultJWTSecret) {
		return errors.New("JWT_SECRET is required unless AUTH_DISABLED=true")
	}
	if c.Storage.Type == "gcs" && c.Storage.GCSBucket == "" {
		return errors.New("STORAGE_GCS_BUCKET is required when STORAGE_TYPE=gcs")
	}
	if c.Import.MaxUploadBytes <= 0 {
		return errors.New("IMPORT_MAX_UPLOAD_BYTES must be positive")
	}
	if _, err := c.Server.TrustedProxyPrefixes(); err != nil {
		return fmt.Errorf("SERVER_TRUSTED_PROXIES: %w", err)
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level; unknown values mean info
func (c *ObservabilityConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
