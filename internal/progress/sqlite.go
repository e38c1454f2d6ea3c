package progress

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite progress store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS module_progress (
		user_id TEXT NOT NULL,
		module_id TEXT NOT NULL,
		completed_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, module_id)
	);

	CREATE INDEX IF NOT EXISTS idx_module_progress_user ON module_progress(user_id);
	`

	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteStore) insert(ctx context.Context, c Completion) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO module_progress (user_id, module_id, completed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, module_id) DO NOTHING
	`, c.UserID, c.ModuleID, c.CompletedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to insert: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// MarkComplete records a completion.
func (s *SQLiteStore) MarkComplete(ctx context.Context, userID, moduleID string) (*Completion, error) {
	if err := validateKey(userID, moduleID); err != nil {
		return nil, err
	}

	if _, err := s.insert(ctx, Completion{UserID: userID, ModuleID: moduleID, CompletedAt: time.Now()}); err != nil {
		return nil, err
	}

	c := &Completion{UserID: userID, ModuleID: moduleID}
	err := s.db.QueryRowContext(ctx,
		"SELECT completed_at FROM module_progress WHERE user_id = ? AND module_id = ?",
		userID, moduleID,
	).Scan(&c.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read completion: %w", err)
	}
	return c, nil
}

// Unmark removes a completion.
func (s *SQLiteStore) Unmark(ctx context.Context, userID, moduleID string) error {
	if err := validateKey(userID, moduleID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM module_progress WHERE user_id = ? AND module_id = ?", userID, moduleID)
	return err
}

// List returns a user's completions.
func (s *SQLiteStore) List(ctx context.Context, userID string) ([]Completion, error) {
	return s.query(ctx, `
		SELECT user_id, module_id, completed_at
		FROM module_progress
		WHERE user_id = ?
		ORDER BY completed_at, module_id
	`, userID)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...interface{}) ([]Completion, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []Completion
	for rows.Next() {
		var c Completion
		if err := rows.Scan(&c.UserID, &c.ModuleID, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Count returns the total number of completions.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM module_progress").Scan(&count)
	return count, err
}

// ExportJSON exports every completion.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.query(ctx, `
		SELECT user_id, module_id, completed_at
		FROM module_progress
		ORDER BY user_id, completed_at, module_id
	`)
	if err != nil {
		return fmt.Errorf("failed to list progress: %w", err)
	}
	return writeExport(writer, all)
}

// ImportJSON imports completions from a JSON export.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return readImport(ctx, reader, s.insert)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
