package codetable

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/em-billing-mcp-server/internal/domain"
)

// Registry holds the current code table snapshot. Reload swaps the snapshot
// atomically; a calculation that took a snapshot keeps using it.
type Registry struct {
	current atomic.Pointer[Table]
	source  Source
	logger  *logrus.Logger
}

// NewRegistry loads the initial table from source.
func NewRegistry(ctx context.Context, source Source, logger *logrus.Logger) (*Registry, error) {
	r := &Registry{source: source, logger: logger}
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// NewStaticRegistry wraps an existing table. Reload is a no-op.
func NewStaticRegistry(table *Table) *Registry {
	r := &Registry{logger: logrus.StandardLogger()}
	r.current.Store(table)
	return r
}

// Snapshot returns the table in effect right now.
func (r *Registry) Snapshot() *Table {
	return r.current.Load()
}

// Lookup resolves codeID against the current snapshot.
func (r *Registry) Lookup(codeID string) (domain.BillingCode, bool) {
	return r.Snapshot().Lookup(codeID)
}

// SourceName reports where the table was loaded from.
func (r *Registry) SourceName() string {
	if r.source == nil {
		return "static"
	}
	return r.source.Name()
}

// Reload loads a new table from the source. On failure the previous snapshot stays.
func (r *Registry) Reload(ctx context.Context) error {
	if r.source == nil {
		return nil
	}

	start := time.Now()
	codes, err := r.source.LoadCodes(ctx)
	if err != nil {
		r.logger.WithError(err).WithField("source", r.source.Name()).Warn("Code table reload failed, keeping previous table")
		return fmt.Errorf("loading codes from %s: %w", r.source.Name(), err)
	}

	table, err := NewTable(codes)
	if err != nil {
		r.logger.WithError(err).WithField("source", r.source.Name()).Warn("Code table rejected, keeping previous table")
		return fmt.Errorf("building code table from %s: %w", r.source.Name(), err)
	}

	r.current.Store(table)
	r.logger.WithFields(logrus.Fields{
		"source":   r.source.Name(),
		"codes":    table.Len(),
		"duration": time.Since(start),
	}).Info("Code table loaded")
	return nil
}

// Watch reloads the table every interval until ctx is done.
func (r *Registry) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.source == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// failure is logged by Reload
			_ = r.Reload(ctx)
		}
	}
}

// Close releases the source's resources, if it holds any.
func (r *Registry) Close() error {
	if closer, ok := r.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
