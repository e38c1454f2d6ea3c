package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Billing     BillingConfig   `mapstructure:"billing"`
	CodeTable   CodeTableConfig `mapstructure:"code_table"`
	Progress    ProgressConfig  `mapstructure:"progress"`
	Session     SessionConfig   `mapstructure:"session"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	MCP         MCPConfig       `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// BillingConfig holds calculator defaults
type BillingConfig struct {
	ConversionFactor float64 `mapstructure:"conversion_factor"`
}

// CodeTableConfig selects and configures the code/RVU table source
type CodeTableConfig struct {
	Source         string        `mapstructure:"source"` // static, file, sqlite, postgres, remote
	Path           string        `mapstructure:"path"`
	DatabaseURL    string        `mapstructure:"database_url"`
	RemoteURL      string        `mapstructure:"remote_url"`
	RemoteAPIKey   string        `mapstructure:"remote_api_key"`
	RemoteTimeout  time.Duration `mapstructure:"remote_timeout"`
	RemoteRate     float64       `mapstructure:"remote_rate"`
	ReloadInterval time.Duration `mapstructure:"reload_interval"`
}

// ProgressConfig selects the course progress backend
type ProgressConfig struct {
	Backend     string `mapstructure:"backend"` // sqlite, postgres, redis
	SQLitePath  string `mapstructure:"sqlite_path"`
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
}

// SessionConfig configures the mock session provider
type SessionConfig struct {
	Tokens   []string      `mapstructure:"tokens"` // token:user:role
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	CacheMax int           `mapstructure:"cache_max"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
	TransportType string `mapstructure:"transport_type"` // "stdio"
}
