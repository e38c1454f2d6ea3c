package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/em-billing-mcp-server/internal/domain"
)

func TestStaticProvider(t *testing.T) {
	p, err := NewStaticProvider([]string{"abc123:alice:paid", " ", "xyz:bob:free"})
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		token string
		user  string
		paid  bool
	}{
		{DemoFreeToken, "demo-free-user", false},
		{DemoPaidToken, "demo-paid-user", true},
		{"abc123", "alice", true},
		{" xyz ", "bob", false},
	}
	for _, tt := range tests {
		s, err := p.Resolve(ctx, tt.token)
		require.NoError(t, err, tt.token)
		assert.Equal(t, tt.user, s.UserID)
		assert.Equal(t, tt.paid, s.IsPaid())
	}

	_, err = p.Resolve(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestStaticProviderRejectsBadEntries(t *testing.T) {
	for _, entry := range []string{"onlytoken", "t:u:admin", ":u:free", "t::paid", "a:b:c:d"} {
		_, err := NewStaticProvider([]string{entry})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, entry)
	}
}

type countingProvider struct {
	calls int
	next  domain.SessionProvider
	err   error
}

func (c *countingProvider) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.next.Resolve(ctx, token)
}

func TestCachedProvider(t *testing.T) {
	static, err := NewStaticProvider(nil)
	require.NoError(t, err)
	backend := &countingProvider{next: static}
	cached := NewCachedProvider(backend, 10, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := cached.Resolve(ctx, DemoPaidToken)
		require.NoError(t, err)
		assert.True(t, s.IsPaid())
	}
	assert.Equal(t, 1, backend.calls)

	s, _ := cached.Resolve(ctx, DemoPaidToken)
	s.Role = domain.RoleFree
	s, _ = cached.Resolve(ctx, DemoPaidToken)
	assert.True(t, s.IsPaid(), "callers must not mutate the cached session")

	for i := 0; i < 2; i++ {
		_, err := cached.Resolve(ctx, "bad-token")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	}
	assert.Equal(t, 2, backend.calls)
	assert.Equal(t, 2, cached.Len())

	cached.Invalidate(DemoPaidToken)
	_, err = cached.Resolve(ctx, DemoPaidToken)
	require.NoError(t, err)
	assert.Equal(t, 3, backend.calls)
}

func TestCachedProviderDoesNotCacheBackendFailures(t *testing.T) {
	backend := &countingProvider{err: errors.New("backend down")}
	cached := NewCachedProvider(backend, 0, 0)

	for i := 0; i < 2; i++ {
		_, err := cached.Resolve(context.Background(), "any")
		require.Error(t, err)
	}
	assert.Equal(t, 2, backend.calls)
	assert.Zero(t, cached.Len())
}

func TestCachedProviderExpires(t *testing.T) {
	static, err := NewStaticProvider(nil)
	require.NoError(t, err)
	backend := &countingProvider{next: static}
	cached := NewCachedProvider(backend, 10, 20*time.Millisecond)

	_, err = cached.Resolve(context.Background(), DemoFreeToken)
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	_, err = cached.Resolve(context.Background(), DemoFreeToken)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls)
}
