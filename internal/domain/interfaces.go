package domain

import (
	"context"
)

// CodeTableProvider is the read-only code/RVU lookup the calculators consume.
// Implementations guarantee RVU is never negative.
type CodeTableProvider interface {
	Lookup(codeID string) (BillingCode, bool)
}

// SessionProvider resolves a session token into the caller's session.
// Unknown tokens fail with ErrUnauthorized.
type SessionProvider interface {
	Resolve(ctx context.Context, token string) (*Session, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetCodeTableConfig() *CodeTableConfig
	GetProgressConfig() *ProgressConfig
	Reload() error
	Validate() error
	IsProduction() bool
}
