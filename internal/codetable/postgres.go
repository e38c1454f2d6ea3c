package codetable

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/em-billing-mcp-server/internal/database"
	"github.com/em-billing-mcp-server/internal/domain"
)

// PostgresSource loads codes from the billing_codes table created by the
// database migrations.
type PostgresSource struct {
	db *database.DB
}

// NewPostgresSource wraps an open pool.
func NewPostgresSource(db *database.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Name implements Source.
func (s *PostgresSource) Name() string { return SourcePostgres }

// LoadCodes implements Source.
func (s *PostgresSource) LoadCodes(ctx context.Context) ([]domain.BillingCode, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, description, rvu, category
		FROM billing_codes
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying billing codes: %w", err)
	}

	codes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.BillingCode, error) {
		var c domain.BillingCode
		err := row.Scan(&c.ID, &c.Description, &c.RVU, &c.Category)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning billing codes: %w", err)
	}
	if len(codes) == 0 {
		return nil, domain.NewValidationError("codes", "billing_codes table is empty", nil)
	}
	return codes, nil
}

// Seed upserts codes with one batch round trip.
func (s *PostgresSource) Seed(ctx context.Context, codes []domain.BillingCode) error {
	batch := &pgx.Batch{}
	for _, c := range codes {
		if err := c.Validate(); err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO billing_codes (id, description, rvu, category, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (id) DO UPDATE SET
				description = EXCLUDED.description,
				rvu = EXCLUDED.rvu,
				category = EXCLUDED.category,
				updated_at = EXCLUDED.updated_at
		`, strings.TrimSpace(c.ID), c.Description, c.RVU, c.Category)
	}

	results := s.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, c := range codes {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting %s: %w", c.ID, err)
		}
	}
	return nil
}

// Close closes the pool.
func (s *PostgresSource) Close() error {
	s.db.Close()
	return nil
}
