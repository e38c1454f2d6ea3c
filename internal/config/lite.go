// Package config provides configuration management for the billing servers.
// This file contains the lightweight, environment-only configuration.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/em-billing-mcp-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for data files

	// Calculator defaults
	ConversionFactor float64

	// Code table
	CodeTableSource string // static, file, sqlite, postgres, remote
	CodeTablePath   string // file or sqlite path
	RemoteURL       string
	RemoteAPIKey    string

	// Progress storage
	ProgressBackend string // sqlite, postgres, redis
	DatabaseURL     string
	RedisURL        string

	// Sessions
	SessionTokens   []string // token:user:role
	SessionCacheMax int
	SessionCacheTTL time.Duration

	// Transport settings
	Transport string // Transport type: stdio
	HTTPPort  int

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".emcalc")

	return &LiteConfig{
		DataDir:          dataDir,
		ConversionFactor: 34.0096,
		CodeTableSource:  "static",
		ProgressBackend:  "sqlite",
		SessionCacheMax:  1024,
		SessionCacheTTL:  5 * time.Minute,
		Transport:        "stdio",
		HTTPPort:         8080,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// LoadLiteConfig loads configuration from EMCALC_* environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("EMCALC_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("EMCALC_CONVERSION_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.ConversionFactor = f
		}
	}

	if v := os.Getenv("EMCALC_CODE_TABLE_SOURCE"); v != "" {
		cfg.CodeTableSource = v
	}
	cfg.CodeTablePath = os.Getenv("EMCALC_CODE_TABLE_PATH")
	cfg.RemoteURL = os.Getenv("EMCALC_CODE_TABLE_URL")
	cfg.RemoteAPIKey = os.Getenv("EMCALC_CODE_TABLE_API_KEY")

	if v := os.Getenv("EMCALC_PROGRESS_BACKEND"); v != "" {
		cfg.ProgressBackend = v
	}
	cfg.DatabaseURL = os.Getenv("EMCALC_DATABASE_URL")
	cfg.RedisURL = os.Getenv("EMCALC_REDIS_URL")

	if v := os.Getenv("EMCALC_SESSION_TOKENS"); v != "" {
		cfg.SessionTokens = strings.Split(v, ",")
	}
	if v := os.Getenv("EMCALC_SESSION_CACHE_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionCacheMax = n
		}
	}
	if v := os.Getenv("EMCALC_SESSION_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionCacheTTL = d
		}
	}

	if v := os.Getenv("EMCALC_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("EMCALC_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	if v := os.Getenv("EMCALC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("EMCALC_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// ProgressDBPath returns the path to the progress SQLite database.
func (c *LiteConfig) ProgressDBPath() string {
	return filepath.Join(c.DataDir, "progress.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

// ToConfig expands the lite settings into the full configuration tree.
func (c *LiteConfig) ToConfig() *domain.Config {
	cfg := &domain.Config{
		Environment: "development",
		Server: domain.ServerConfig{
			Host:           "0.0.0.0",
			Port:           c.HTTPPort,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			RequestTimeout: 10 * time.Second,
		},
		Billing: domain.BillingConfig{ConversionFactor: c.ConversionFactor},
		CodeTable: domain.CodeTableConfig{
			Source:        c.CodeTableSource,
			Path:          c.CodeTablePath,
			DatabaseURL:   c.DatabaseURL,
			RemoteURL:     c.RemoteURL,
			RemoteAPIKey:  c.RemoteAPIKey,
			RemoteTimeout: 10 * time.Second,
			RemoteRate:    1,
		},
		Progress: domain.ProgressConfig{
			Backend:     c.ProgressBackend,
			SQLitePath:  c.ProgressDBPath(),
			DatabaseURL: c.DatabaseURL,
			RedisURL:    c.RedisURL,
		},
		Session: domain.SessionConfig{
			Tokens:   c.SessionTokens,
			CacheTTL: c.SessionCacheTTL,
			CacheMax: c.SessionCacheMax,
		},
		Logging: domain.LoggingConfig{Level: c.LogLevel, Format: c.LogFormat},
		MCP: domain.MCPConfig{
			ServerName:    "em-billing-mcp-server",
			ServerVersion: "v0.1.0",
			TransportType: c.Transport,
		},
	}
	return cfg
}

// Manager wraps the expanded settings for hosts that take a ConfigManager.
func (c *LiteConfig) Manager() *Manager {
	return &Manager{config: c.ToConfig()}
}
