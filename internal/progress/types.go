// Package progress records which course modules a user has completed.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/em-billing-mcp-server/internal/domain"
)

// Completion marks one module as completed by one user.
type Completion struct {
	UserID      string    `json:"user_id"`
	ModuleID    string    `json:"module_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Store defines the interface for progress storage operations.
type Store interface {
	// MarkComplete records a completion. Completing a module twice keeps the
	// first completion time.
	MarkComplete(ctx context.Context, userID, moduleID string) (*Completion, error)

	// Unmark removes a completion. Removing a missing completion is not an error.
	Unmark(ctx context.Context, userID, moduleID string) error

	// List returns a user's completions ordered by completion time.
	List(ctx context.Context, userID string) ([]Completion, error)

	// Count returns the total number of completions across users.
	Count(ctx context.Context) (int64, error)

	// ExportJSON writes every completion to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON loads completions, skipping ones that already exist.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version     string       `json:"version"`
	ExportedAt  time.Time    `json:"exported_at"`
	Count       int          `json:"count"`
	Completions []Completion `json:"completions"`
}

const exportVersion = "1.0"

func validateKey(userID, moduleID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.NewValidationError("user_id", "user id is required", userID)
	}
	if strings.TrimSpace(moduleID) == "" {
		return domain.NewValidationError("module_id", "module id is required", moduleID)
	}
	return nil
}

func sortCompletions(cs []Completion) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].UserID != cs[j].UserID {
			return cs[i].UserID < cs[j].UserID
		}
		if !cs[i].CompletedAt.Equal(cs[j].CompletedAt) {
			return cs[i].CompletedAt.Before(cs[j].CompletedAt)
		}
		return cs[i].ModuleID < cs[j].ModuleID
	})
}

func writeExport(writer io.Writer, completions []Completion) error {
	export := &Export{
		Version:     exportVersion,
		ExportedAt:  time.Now().UTC(),
		Count:       len(completions),
		Completions: completions,
	}
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// readImport decodes an export and hands each completion to insert, which
// reports whether the row was new.
func readImport(ctx context.Context, reader io.Reader, insert func(context.Context, Completion) (bool, error)) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, c := range export.Completions {
		if err := validateKey(c.UserID, c.ModuleID); err != nil {
			return imported, skipped, err
		}
		if c.CompletedAt.IsZero() {
			c.CompletedAt = time.Now().UTC()
		}
		created, err := insert(ctx, c)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to import %s/%s: %w", c.UserID, c.ModuleID, err)
		}
		if created {
			imported++
		} else {
			skipped++
		}
	}
	return imported, skipped, nil
}
