package progress

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL progress store.
// It expects the module_progress table to exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL progress store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// MarkComplete records a completion. The no-op update makes RETURNING yield
// the stored row when the completion already exists.
func (s *PostgresStore) MarkComplete(ctx context.Context, userID, moduleID string) (*Completion, error) {
	if err := validateKey(userID, moduleID); err != nil {
		return nil, err
	}

	c := &Completion{UserID: userID, ModuleID: moduleID}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO module_progress (user_id, module_id, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, module_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING completed_at
	`, userID, moduleID, time.Now().UTC()).Scan(&c.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save completion: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) insert(ctx context.Context, c Completion) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO module_progress (user_id, module_id, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, module_id) DO NOTHING
	`, c.UserID, c.ModuleID, c.CompletedAt.UTC())
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Unmark removes a completion.
func (s *PostgresStore) Unmark(ctx context.Context, userID, moduleID string) error {
	if err := validateKey(userID, moduleID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM module_progress WHERE user_id = $1 AND module_id = $2", userID, moduleID); err != nil {
		return fmt.Errorf("failed to delete completion: %w", err)
	}
	return nil
}

// List returns a user's completions.
func (s *PostgresStore) List(ctx context.Context, userID string) ([]Completion, error) {
	return s.query(ctx, `
		SELECT user_id, module_id, completed_at
		FROM module_progress
		WHERE user_id = $1
		ORDER BY completed_at, module_id
	`, userID)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...interface{}) ([]Completion, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var result []Completion
	for rows.Next() {
		var c Completion
		if err := rows.Scan(&c.UserID, &c.ModuleID, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Count returns the total number of completions.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM module_progress").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count progress: %w", err)
	}
	return count, nil
}

// ExportJSON exports every completion.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.query(ctx, `
		SELECT user_id, module_id, completed_at
		FROM module_progress
		ORDER BY user_id, completed_at, module_id
	`)
	if err != nil {
		return err
	}
	return writeExport(writer, all)
}

// ImportJSON imports completions from a JSON export.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return readImport(ctx, reader, s.insert)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
