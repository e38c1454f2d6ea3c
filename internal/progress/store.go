package progress

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/em-billing-mcp-server/internal/domain"
)

// Backend names accepted by NewStore.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// NewStore opens the backend named by cfg.Backend. SQLite is the default;
// dataDir is used when no SQLite path is configured.
func NewStore(ctx context.Context, cfg domain.ProgressConfig, dataDir string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = filepath.Join(dataDir, "progress.db")
		}
		return NewSQLiteStore(path)
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, domain.NewValidationError("progress.database_url", "database URL is required for the postgres backend", nil)
		}
		return NewPostgresStoreFromURL(cfg.DatabaseURL)
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, domain.NewValidationError("progress.redis_url", "redis URL is required for the redis backend", nil)
		}
		return NewRedisStore(ctx, cfg.RedisURL)
	default:
		return nil, domain.NewValidationError("progress.backend", "unknown progress backend", cfg.Backend)
	}
}
