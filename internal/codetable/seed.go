package codetable

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/em-billing-mcp-server/internal/domain"
)

// Seeder is a source that can be written to.
type Seeder interface {
	Seed(ctx context.Context, codes []domain.BillingCode) error
}

// SeedDefaultsIfEmpty writes DefaultCodes into src when it is a Seeder holding
// no codes. It reports whether seeding happened.
func SeedDefaultsIfEmpty(ctx context.Context, src Source, logger *logrus.Logger) (bool, error) {
	seeder, ok := src.(Seeder)
	if !ok {
		return false, nil
	}

	_, err := src.LoadCodes(ctx)
	if err == nil || !errors.Is(err, domain.ErrInvalidInput) {
		return false, nil
	}

	codes := DefaultCodes()
	if err := seeder.Seed(ctx, codes); err != nil {
		return false, fmt.Errorf("seeding %s: %w", src.Name(), err)
	}
	logger.WithFields(logrus.Fields{
		"source": src.Name(),
		"codes":  len(codes),
	}).Info("Seeded empty code table with defaults")
	return true, nil
}
