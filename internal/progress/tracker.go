package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/em-billing-mcp-server/internal/course"
	"github.com/em-billing-mcp-server/internal/domain"
)

// Tracker applies catalog rules on top of a Store.
type Tracker struct {
	store   Store
	catalog *course.Catalog
	logger  *logrus.Logger
}

// ModuleStatus is one row of a progress summary.
type ModuleStatus struct {
	Module      course.Module `json:"module"`
	Completed   bool          `json:"completed"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// Summary is a user's progress over the modules they can access.
type Summary struct {
	UserID    string         `json:"user_id"`
	Completed int            `json:"completed"`
	Total     int            `json:"total"`
	Percent   float64        `json:"percent"`
	Modules   []ModuleStatus `json:"modules"`
}

// NewTracker creates a tracker.
func NewTracker(store Store, catalog *course.Catalog, logger *logrus.Logger) *Tracker {
	return &Tracker{store: store, catalog: catalog, logger: logger}
}

// Catalog returns the course catalog.
func (t *Tracker) Catalog() *course.Catalog {
	return t.catalog
}

func (t *Tracker) resolve(session *domain.Session, moduleID string) (course.Module, error) {
	if session == nil || strings.TrimSpace(session.UserID) == "" {
		return course.Module{}, domain.ErrUnauthorized
	}
	m, ok := t.catalog.Module(moduleID)
	if !ok {
		return course.Module{}, fmt.Errorf("module %q: %w", moduleID, domain.ErrNotFound)
	}
	if !t.catalog.CanAccess(session, m) {
		return course.Module{}, fmt.Errorf("module %q requires a paid plan: %w", m.ID, domain.ErrForbidden)
	}
	return m, nil
}

// Complete marks a module complete for the session's user.
func (t *Tracker) Complete(ctx context.Context, session *domain.Session, moduleID string) (*Completion, error) {
	m, err := t.resolve(session, moduleID)
	if err != nil {
		return nil, err
	}

	c, err := t.store.MarkComplete(ctx, session.UserID, m.ID)
	if err != nil {
		t.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":   session.UserID,
			"module_id": m.ID,
		}).Error("Failed to record module completion")
		return nil, err
	}

	t.logger.WithFields(logrus.Fields{
		"user_id":   session.UserID,
		"module_id": m.ID,
	}).Info("Module completed")
	return c, nil
}

// Uncomplete removes a module completion.
func (t *Tracker) Uncomplete(ctx context.Context, session *domain.Session, moduleID string) error {
	m, err := t.resolve(session, moduleID)
	if err != nil {
		return err
	}
	return t.store.Unmark(ctx, session.UserID, m.ID)
}

// Summary reports progress over the modules the session can access.
// Completions of modules no longer accessible are ignored.
func (t *Tracker) Summary(ctx context.Context, session *domain.Session) (*Summary, error) {
	if session == nil || strings.TrimSpace(session.UserID) == "" {
		return nil, domain.ErrUnauthorized
	}

	completions, err := t.store.List(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing progress: %w", err)
	}
	done := make(map[string]time.Time, len(completions))
	for _, c := range completions {
		done[c.ModuleID] = c.CompletedAt
	}

	accessible := t.catalog.Accessible(session)
	summary := &Summary{
		UserID:  session.UserID,
		Total:   len(accessible),
		Modules: make([]ModuleStatus, 0, len(accessible)),
	}
	for _, m := range accessible {
		status := ModuleStatus{Module: m}
		if at, ok := done[m.ID]; ok {
			at := at
			status.Completed = true
			status.CompletedAt = &at
			summary.Completed++
		}
		summary.Modules = append(summary.Modules, status)
	}
	if summary.Total > 0 {
		summary.Percent = float64(summary.Completed) * 100 / float64(summary.Total)
	}
	return summary, nil
}
