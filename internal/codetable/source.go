package codetable

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/em-billing-mcp-server/internal/database"
	"github.com/em-billing-mcp-server/internal/domain"
)

// Source names accepted by NewSource.
const (
	SourceStatic   = "static"
	SourceFile     = "file"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
	SourceRemote   = "remote"
)

// Source loads the full list of billing codes.
type Source interface {
	Name() string
	LoadCodes(ctx context.Context) ([]domain.BillingCode, error)
}

// StaticSource serves a fixed list, the bundled defaults when Codes is nil.
type StaticSource struct {
	Codes []domain.BillingCode
}

// Name implements Source.
func (s StaticSource) Name() string { return SourceStatic }

// LoadCodes implements Source.
func (s StaticSource) LoadCodes(ctx context.Context) ([]domain.BillingCode, error) {
	if s.Codes == nil {
		return DefaultCodes(), nil
	}
	return append([]domain.BillingCode(nil), s.Codes...), nil
}

// NewSource builds the source named by cfg.Source. An empty name means static.
func NewSource(ctx context.Context, cfg domain.CodeTableConfig, logger *logrus.Logger) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Source)) {
	case "", SourceStatic:
		return StaticSource{}, nil
	case SourceFile:
		return NewFileSource(cfg.Path)
	case SourceSQLite:
		return OpenSQLiteSource(cfg.Path)
	case SourcePostgres:
		if cfg.DatabaseURL == "" {
			return nil, domain.NewValidationError("code_table.database_url", "database URL is required for the postgres source", nil)
		}
		db, err := database.NewConnection(ctx, database.DefaultConfig(cfg.DatabaseURL), logger)
		if err != nil {
			return nil, fmt.Errorf("connecting code table database: %w", err)
		}
		return NewPostgresSource(db), nil
	case SourceRemote:
		return NewRemoteSource(RemoteConfig{
			URL:       cfg.RemoteURL,
			APIKey:    cfg.RemoteAPIKey,
			Timeout:   cfg.RemoteTimeout,
			RateLimit: cfg.RemoteRate,
		}, logger)
	default:
		return nil, domain.NewValidationError("code_table.source", "unknown code table source", cfg.Source)
	}
}
