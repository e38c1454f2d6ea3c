package codetable

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/em-billing-mcp-server/internal/domain"
)

func TestNewTable(t *testing.T) {
	tests := []struct {
		name    string
		codes   []domain.BillingCode
		wantErr bool
	}{
		{"defaults", DefaultCodes(), false},
		{"empty table", nil, false},
		{"duplicate id", []domain.BillingCode{{ID: "99213", RVU: 1}, {ID: " 99213", RVU: 2}}, true},
		{"empty id", []domain.BillingCode{{ID: "", RVU: 1}}, true},
		{"negative rvu", []domain.BillingCode{{ID: "99213", RVU: -1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewTable(tt.codes)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidInput))
				assert.Nil(t, table)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.codes), table.Len())
		})
	}
}

func TestTableLookup(t *testing.T) {
	table := DefaultTable()

	code, ok := table.Lookup("G0438")
	require.True(t, ok)
	assert.Equal(t, 2.43, code.RVU)

	code, ok = table.Lookup(" G0439 ")
	require.True(t, ok)
	assert.Equal(t, 1.50, code.RVU)

	_, ok = table.Lookup("00000")
	assert.False(t, ok)

	var nilTable *Table
	_, ok = nilTable.Lookup("99213")
	assert.False(t, ok)
	assert.Zero(t, nilTable.Len())
}

func TestTableCodesSortedAndCopied(t *testing.T) {
	table := DefaultTable()
	codes := table.Codes()
	require.Len(t, codes, table.Len())

	for i := 1; i < len(codes); i++ {
		assert.Less(t, codes[i-1].ID, codes[i].ID)
	}

	codes[0].RVU = 999
	first, _ := table.Lookup(codes[0].ID)
	assert.NotEqual(t, 999.0, first.RVU)
}

func TestDefaultCodesAreNonNegative(t *testing.T) {
	for _, c := range DefaultCodes() {
		assert.GreaterOrEqual(t, c.RVU, 0.0, c.ID)
		assert.NotEmpty(t, c.Description, c.ID)
	}
}

type stubSource struct {
	mu    sync.Mutex
	codes []domain.BillingCode
	err   error
	calls int
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) LoadCodes(ctx context.Context) ([]domain.BillingCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.codes, s.err
}

func (s *stubSource) set(codes []domain.BillingCode, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes, s.err = codes, err
}

func TestRegistryReload(t *testing.T) {
	logger, hook := test.NewNullLogger()
	source := &stubSource{codes: []domain.BillingCode{{ID: "99213", RVU: 2.66}}}

	registry, err := NewRegistry(context.Background(), source, logger)
	require.NoError(t, err)
	assert.Equal(t, "stub", registry.SourceName())

	before := registry.Snapshot()
	code, ok := registry.Lookup("99213")
	require.True(t, ok)
	assert.Equal(t, 2.66, code.RVU)

	source.set([]domain.BillingCode{{ID: "99213", RVU: 2.70}, {ID: "99214", RVU: 3.75}}, nil)
	require.NoError(t, registry.Reload(context.Background()))

	code, _ = registry.Lookup("99213")
	assert.Equal(t, 2.70, code.RVU)
	assert.Equal(t, 2, registry.Snapshot().Len())

	// old snapshot is untouched
	old, _ := before.Lookup("99213")
	assert.Equal(t, 2.66, old.RVU)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

func TestRegistryKeepsPreviousTableOnFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	source := &stubSource{codes: DefaultCodes()}

	registry, err := NewRegistry(context.Background(), source, logger)
	require.NoError(t, err)

	source.set(nil, errors.New("connection refused"))
	require.Error(t, registry.Reload(context.Background()))
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	source.set([]domain.BillingCode{{ID: "99213", RVU: -1}}, nil)
	err = registry.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, ok := registry.Lookup("G0438")
	assert.True(t, ok, "previous snapshot should still be served")
}

func TestNewRegistryFailsWithoutInitialTable(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := NewRegistry(context.Background(), &stubSource{err: errors.New("down")}, logger)
	require.Error(t, err)
}

func TestRegistryConcurrentReadsDuringReload(t *testing.T) {
	logger, _ := test.NewNullLogger()
	source := &stubSource{codes: DefaultCodes()}
	registry, err := NewRegistry(context.Background(), source, logger)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_, ok := registry.Lookup("G0438")
				assert.True(t, ok)
			}
		}()
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, registry.Reload(context.Background()))
	}
	wg.Wait()
}

func TestStaticRegistry(t *testing.T) {
	registry := NewStaticRegistry(DefaultTable())
	assert.Equal(t, SourceStatic, registry.SourceName())
	assert.NoError(t, registry.Reload(context.Background()))
	assert.NoError(t, registry.Close())

	_, ok := registry.Lookup("99214")
	assert.True(t, ok)
}
