package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/em-billing-mcp-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a configuration manager that searches the default paths.
func NewManager() (*Manager, error) {
	return NewManagerWithViper(viper.New(), "")
}

// NewManagerWithViper loads configuration through v, which may already carry
// bound command line flags. configFile, when set, replaces the search paths.
func NewManagerWithViper(v *viper.Viper, configFile string) (*Manager, error) {
	m := &Manager{v: v, configFile: configFile}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := m.v
	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/emcalc/")
	}

	v.SetEnvPrefix("EMCALC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	m.setDefaults()

	// Config file is optional unless one was named explicitly.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if m.configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	v := m.v
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "10s")

	// Calculator defaults
	v.SetDefault("billing.conversion_factor", 34.0096)

	// Code table defaults
	v.SetDefault("code_table.source", "static")
	v.SetDefault("code_table.path", "")
	v.SetDefault("code_table.database_url", "")
	v.SetDefault("code_table.remote_url", "")
	v.SetDefault("code_table.remote_api_key", "")
	v.SetDefault("code_table.remote_timeout", "10s")
	v.SetDefault("code_table.remote_rate", 1.0)
	v.SetDefault("code_table.reload_interval", "0s")

	// Progress defaults
	v.SetDefault("progress.backend", "sqlite")
	v.SetDefault("progress.sqlite_path", "./data/progress.db")
	v.SetDefault("progress.database_url", "")
	v.SetDefault("progress.redis_url", "")

	// Session defaults
	v.SetDefault("session.tokens", []string{})
	v.SetDefault("session.cache_ttl", "5m")
	v.SetDefault("session.cache_max", 1024)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// MCP defaults
	v.SetDefault("mcp.server_name", "em-billing-mcp-server")
	v.SetDefault("mcp.server_version", "v0.1.0")
	v.SetDefault("mcp.transport_type", "stdio")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetCodeTableConfig returns code table configuration
func (m *Manager) GetCodeTableConfig() *domain.CodeTableConfig {
	return &m.config.CodeTable
}

// GetProgressConfig returns progress storage configuration
func (m *Manager) GetProgressConfig() *domain.ProgressConfig {
	return &m.config.Progress
}

// Reload reloads the configuration. Managers built from a LiteConfig have
// nothing to reload.
func (m *Manager) Reload() error {
	if m.v == nil {
		return nil
	}
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Billing.ConversionFactor <= 0 {
		return fmt.Errorf("conversion factor must be positive: %v", config.Billing.ConversionFactor)
	}

	switch strings.ToLower(config.CodeTable.Source) {
	case "static":
	case "file", "sqlite":
		if config.CodeTable.Path == "" {
			return fmt.Errorf("code table path is required for source %q", config.CodeTable.Source)
		}
	case "postgres":
		if config.CodeTable.DatabaseURL == "" {
			return fmt.Errorf("code table database URL is required")
		}
	case "remote":
		if config.CodeTable.RemoteURL == "" {
			return fmt.Errorf("code table remote URL is required")
		}
	default:
		return fmt.Errorf("unknown code table source: %s", config.CodeTable.Source)
	}

	switch strings.ToLower(config.Progress.Backend) {
	case "sqlite":
	case "postgres":
		if config.Progress.DatabaseURL == "" {
			return fmt.Errorf("progress database URL is required")
		}
	case "redis":
		if config.Progress.RedisURL == "" {
			return fmt.Errorf("Redis URL is required")
		}
	default:
		return fmt.Errorf("unknown progress backend: %s", config.Progress.Backend)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
