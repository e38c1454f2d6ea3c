package codetable

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/em-billing-mcp-server/internal/domain"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS billing_codes (
	id TEXT PRIMARY KEY,
	description TEXT NOT NULL DEFAULT '',
	rvu REAL NOT NULL CHECK (rvu >= 0),
	category TEXT NOT NULL DEFAULT '',
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_billing_codes_category ON billing_codes(category);
`

// SQLiteSource loads codes from a local SQLite file.
type SQLiteSource struct {
	db     *sql.DB
	dbPath string
}

// OpenSQLiteSource opens (and creates if needed) the database at dbPath.
func OpenSQLiteSource(dbPath string) (*SQLiteSource, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, domain.NewValidationError("code_table.path", "sqlite path is required", dbPath)
	}

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

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteSource{db: db, dbPath: dbPath}, nil
}

// Name implements Source.
func (s *SQLiteSource) Name() string { return SourceSQLite + ":" + s.dbPath }

// LoadCodes implements Source.
func (s *SQLiteSource) LoadCodes(ctx context.Context) ([]domain.BillingCode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, rvu, category
		FROM billing_codes
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var codes []domain.BillingCode
	for rows.Next() {
		var c domain.BillingCode
		if err := rows.Scan(&c.ID, &c.Description, &c.RVU, &c.Category); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		codes = append(codes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return nil, domain.NewValidationError("codes", "billing_codes table is empty", s.dbPath)
	}
	return codes, nil
}

// Seed upserts codes in a single transaction.
func (s *SQLiteSource) Seed(ctx context.Context, codes []domain.BillingCode) error {
	for _, c := range codes {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO billing_codes (id, description, rvu, category, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			rvu = excluded.rvu,
			category = excluded.category,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range codes {
		if _, err := stmt.ExecContext(ctx, strings.TrimSpace(c.ID), c.Description, c.RVU, c.Category); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
