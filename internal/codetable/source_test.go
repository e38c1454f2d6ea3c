package codetable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/em-billing-mcp-server/internal/domain"
)

func TestStaticSource(t *testing.T) {
	codes, err := StaticSource{}.LoadCodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, codes, len(DefaultCodes()))

	custom := []domain.BillingCode{{ID: "X1", RVU: 1}}
	codes, err = StaticSource{Codes: custom}.LoadCodes(context.Background())
	require.NoError(t, err)
	codes[0].RVU = 5
	assert.Equal(t, 1.0, custom[0].RVU)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "codes.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
codes:
  - id: "G0438"
    description: "Annual wellness visit, initial"
    rvu: 2.43
    category: wellness
  - id: "G0439"
    description: "Annual wellness visit, subsequent"
    rvu: 1.5
`), 0o644))

	source, err := NewFileSource(yamlPath)
	require.NoError(t, err)

	codes, err := source.LoadCodes(context.Background())
	require.NoError(t, err)
	require.Len(t, codes, 2)
	assert.Equal(t, "G0438", codes[0].ID)
	assert.Equal(t, 2.43, codes[0].RVU)
	assert.Equal(t, "wellness", codes[0].Category)

	jsonPath := filepath.Join(dir, "codes.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"codes":[{"id":"99214","description":"Moderate","rvu":3.75}]}`), 0o644))
	source, err = NewFileSource(jsonPath)
	require.NoError(t, err)
	codes, err = source.LoadCodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3.75, codes[0].RVU)

	emptyPath := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(emptyPath, []byte("codes: []\n"), 0o644))
	source, err = NewFileSource(emptyPath)
	require.NoError(t, err)
	_, err = source.LoadCodes(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewFileSource("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSQLiteSourceSeedAndLoad(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "codes.db")
	source, err := OpenSQLiteSource(dbPath)
	require.NoError(t, err)
	defer source.Close()

	ctx := context.Background()

	_, err = source.LoadCodes(ctx)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "empty table should not load")

	require.NoError(t, source.Seed(ctx, DefaultCodes()))
	require.NoError(t, source.Seed(ctx, []domain.BillingCode{{ID: "G0438", Description: "AWV initial", RVU: 2.50}}))

	codes, err := source.LoadCodes(ctx)
	require.NoError(t, err)
	assert.Len(t, codes, len(DefaultCodes()))

	table, err := NewTable(codes)
	require.NoError(t, err)
	code, ok := table.Lookup("G0438")
	require.True(t, ok)
	assert.Equal(t, 2.50, code.RVU)

	err = source.Seed(ctx, []domain.BillingCode{{ID: "BAD", RVU: -2}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func newRemoteTestSource(t *testing.T, url string) *RemoteSource {
	t.Helper()
	logger, _ := test.NewNullLogger()
	source, err := NewRemoteSource(RemoteConfig{
		URL:       url,
		APIKey:    "secret",
		Timeout:   2 * time.Second,
		RateLimit: 1000,
	}, logger)
	require.NoError(t, err)
	return source
}

func TestRemoteSourceLoadsCodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"codes": DefaultCodes(),
		})
	}))
	defer server.Close()

	source := newRemoteTestSource(t, server.URL)
	codes, err := source.LoadCodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, codes, len(DefaultCodes()))
	assert.Equal(t, gobreaker.StateClosed, source.State())
}

func TestRemoteSourceCircuitBreakerOpens(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	source := newRemoteTestSource(t, server.URL)
	for i := 0; i < 3; i++ {
		_, err := source.LoadCodes(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	}

	assert.Equal(t, gobreaker.StateOpen, source.State())
	_, err := source.LoadCodes(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "open breaker must not reach the endpoint")
}

func TestRemoteSourceFeedsRegistry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"codes":[{"id":"99213","rvu":-1}]}`))
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	_, err := NewRegistry(context.Background(), newRemoteTestSource(t, server.URL), logger)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewSource(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	tests := []struct {
		name     string
		cfg      domain.CodeTableConfig
		wantName string
		wantErr  bool
	}{
		{"default", domain.CodeTableConfig{}, SourceStatic, false},
		{"static", domain.CodeTableConfig{Source: "STATIC"}, SourceStatic, false},
		{"file", domain.CodeTableConfig{Source: "file", Path: "codes.yaml"}, "file:codes.yaml", false},
		{"file without path", domain.CodeTableConfig{Source: "file"}, "", true},
		{"sqlite", domain.CodeTableConfig{Source: "sqlite", Path: filepath.Join(t.TempDir(), "c.db")}, "", false},
		{"postgres without url", domain.CodeTableConfig{Source: "postgres"}, "", true},
		{"remote", domain.CodeTableConfig{Source: "remote", RemoteURL: "http://localhost:1"}, SourceRemote, false},
		{"remote without url", domain.CodeTableConfig{Source: "remote"}, "", true},
		{"unknown", domain.CodeTableConfig{Source: "ftp"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := NewSource(ctx, tt.cfg, logger)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			if tt.wantName != "" {
				assert.Equal(t, tt.wantName, source.Name())
			}
			if s, ok := source.(*SQLiteSource); ok {
				s.Close()
			}
		})
	}
}

func TestSeedDefaultsIfEmpty(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ctx := context.Background()

	source, err := OpenSQLiteSource(filepath.Join(t.TempDir(), "codes.db"))
	require.NoError(t, err)
	defer source.Close()

	seeded, err := SeedDefaultsIfEmpty(ctx, source, logger)
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, "Seeded empty code table with defaults", hook.LastEntry().Message)

	seeded, err = SeedDefaultsIfEmpty(ctx, source, logger)
	require.NoError(t, err)
	assert.False(t, seeded, "populated table is left alone")

	seeded, err = SeedDefaultsIfEmpty(ctx, StaticSource{}, logger)
	require.NoError(t, err)
	assert.False(t, seeded, "read-only sources are skipped")
}
