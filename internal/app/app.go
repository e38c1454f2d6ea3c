// Package app wires configuration into the calculator, code table, progress
// and session components shared by every binary.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/em-billing-mcp-server/internal/codetable"
	"github.com/em-billing-mcp-server/internal/course"
	"github.com/em-billing-mcp-server/internal/database"
	"github.com/em-billing-mcp-server/internal/domain"
	"github.com/em-billing-mcp-server/internal/progress"
	"github.com/em-billing-mcp-server/internal/service"
	"github.com/em-billing-mcp-server/internal/session"
)

// App holds the wired components.
type App struct {
	Config     *domain.Config
	Logger     *logrus.Logger
	Registry   *codetable.Registry
	Calculator *service.CalculatorService
	Tracker    *progress.Tracker
	Sessions   domain.SessionProvider

	store progress.Store
}

// Options tune what New builds.
type Options struct {
	// DataDir holds the default SQLite progress database.
	DataDir string
	// SkipProgress leaves Tracker nil, for tools that only calculate.
	SkipProgress bool
}

// New builds every component from cfg. Postgres schemas are migrated before
// first use and an empty writable code table is seeded with the defaults.
func New(ctx context.Context, cfg *domain.Config, logger *logrus.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if err := migrateIfNeeded(ctx, cfg, logger, opts.SkipProgress); err != nil {
		return nil, err
	}

	source, err := codetable.NewSource(ctx, cfg.CodeTable, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create code table source: %w", err)
	}
	if _, err := codetable.SeedDefaultsIfEmpty(ctx, source, logger); err != nil {
		return nil, err
	}
	registry, err := codetable.NewRegistry(ctx, source, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load code table: %w", err)
	}
	a.Registry = registry
	a.Calculator = service.NewCalculatorService(logger, registry, cfg.Billing.ConversionFactor)

	static, err := session.NewStaticProvider(cfg.Session.Tokens)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to parse session tokens: %w", err)
	}
	a.Sessions = session.NewCachedProvider(static, cfg.Session.CacheMax, cfg.Session.CacheTTL)

	if !opts.SkipProgress {
		store, err := progress.NewStore(ctx, cfg.Progress, opts.DataDir)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open progress store: %w", err)
		}
		a.store = store
		a.Tracker = progress.NewTracker(store, course.DefaultCatalog(), logger)
	}

	logger.WithFields(logrus.Fields{
		"code_table":        registry.SourceName(),
		"codes":             registry.Snapshot().Len(),
		"progress_backend":  cfg.Progress.Backend,
		"conversion_factor": a.Calculator.ConversionFactor(),
	}).Info("Application components initialized")
	return a, nil
}

// WatchCodeTable reloads the code table on the configured interval until ctx is done.
func (a *App) WatchCodeTable(ctx context.Context) {
	if a.Config.CodeTable.ReloadInterval > 0 {
		go a.Registry.Watch(ctx, a.Config.CodeTable.ReloadInterval)
	}
}

// Close releases storage handles.
func (a *App) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Logger.WithError(err).Error("Failed to close progress store")
		}
	}
	if a.Registry != nil {
		if err := a.Registry.Close(); err != nil {
			a.Logger.WithError(err).Error("Failed to close code table source")
		}
	}
}

// PostgresURLs returns the distinct database URLs that need migrations.
func PostgresURLs(cfg *domain.Config, includeProgress bool) []string {
	var urls []string
	add := func(url string) {
		if url == "" {
			return
		}
		for _, u := range urls {
			if u == url {
				return
			}
		}
		urls = append(urls, url)
	}

	if strings.EqualFold(cfg.CodeTable.Source, codetable.SourcePostgres) {
		add(cfg.CodeTable.DatabaseURL)
	}
	if includeProgress && strings.EqualFold(cfg.Progress.Backend, progress.BackendPostgres) {
		add(cfg.Progress.DatabaseURL)
	}
	return urls
}

func migrateIfNeeded(ctx context.Context, cfg *domain.Config, logger *logrus.Logger, skipProgress bool) error {
	for _, url := range PostgresURLs(cfg, !skipProgress) {
		if err := database.Migrate(ctx, url, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return nil
}
