package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/em-billing-mcp-server/internal/codetable"
	"github.com/em-billing-mcp-server/internal/domain"
	"github.com/em-billing-mcp-server/internal/session"
)

func TestNewWithLocalBackends(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dir := t.TempDir()

	cfg := &domain.Config{
		Billing:   domain.BillingConfig{ConversionFactor: 33.0},
		CodeTable: domain.CodeTableConfig{Source: "sqlite", Path: filepath.Join(dir, "codes.db")},
		Progress:  domain.ProgressConfig{Backend: "sqlite"},
		Session:   domain.SessionConfig{Tokens: []string{"tok:alice:paid"}, CacheTTL: time.Minute},
	}

	a, err := New(context.Background(), cfg, logger, Options{DataDir: dir})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 33.0, a.Calculator.ConversionFactor())
	assert.Equal(t, len(codetable.DefaultCodes()), a.Registry.Snapshot().Len(), "empty sqlite table is seeded")
	require.NotNil(t, a.Tracker)

	s, err := a.Sessions.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, s.IsPaid())

	_, err = a.Sessions.Resolve(context.Background(), session.DemoFreeToken)
	require.NoError(t, err)

	_, err = a.Tracker.Complete(context.Background(), s, "em-foundations")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "progress.db"))
}

func TestNewSkipProgress(t *testing.T) {
	logger, _ := test.NewNullLogger()

	a, err := New(context.Background(), &domain.Config{}, logger, Options{SkipProgress: true})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Tracker)
	assert.Equal(t, "static", a.Registry.SourceName())
}

func TestNewRejectsBadSessionTokens(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := &domain.Config{Session: domain.SessionConfig{Tokens: []string{"broken"}}}

	_, err := New(context.Background(), cfg, logger, Options{SkipProgress: true})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPostgresURLs(t *testing.T) {
	cfg := &domain.Config{
		CodeTable: domain.CodeTableConfig{Source: "postgres", DatabaseURL: "postgres://a"},
		Progress:  domain.ProgressConfig{Backend: "postgres", DatabaseURL: "postgres://a"},
	}
	assert.Equal(t, []string{"postgres://a"}, PostgresURLs(cfg, true))

	cfg.Progress.DatabaseURL = "postgres://b"
	assert.Equal(t, []string{"postgres://a", "postgres://b"}, PostgresURLs(cfg, true))
	assert.Equal(t, []string{"postgres://a"}, PostgresURLs(cfg, false))

	assert.Empty(t, PostgresURLs(&domain.Config{}, true))
}
