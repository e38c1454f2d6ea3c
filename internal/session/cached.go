package session

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/em-billing-mcp-server/internal/domain"
)

const (
	defaultCacheSize = 1024
	defaultCacheTTL  = 5 * time.Minute
)

// CachedProvider memoizes successful resolutions of another provider.
// Unauthorized tokens are cached too so repeated bad tokens skip the backend.
type CachedProvider struct {
	next  domain.SessionProvider
	cache *expirable.LRU[string, cachedResult]
}

type cachedResult struct {
	session *domain.Session
	err     error
}

// NewCachedProvider wraps next. Zero size or ttl use defaults.
func NewCachedProvider(next domain.SessionProvider, size int, ttl time.Duration) *CachedProvider {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedProvider{
		next:  next,
		cache: expirable.NewLRU[string, cachedResult](size, nil, ttl),
	}
}

// Resolve implements domain.SessionProvider.
func (p *CachedProvider) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	if hit, ok := p.cache.Get(token); ok {
		return copySession(hit.session), hit.err
	}

	s, err := p.next.Resolve(ctx, token)
	if err != nil && !errors.Is(err, domain.ErrUnauthorized) {
		return nil, err
	}
	p.cache.Add(token, cachedResult{session: copySession(s), err: err})
	return s, err
}

// Invalidate drops a cached token.
func (p *CachedProvider) Invalidate(token string) {
	p.cache.Remove(token)
}

// Len returns the number of cached tokens.
func (p *CachedProvider) Len() int {
	return p.cache.Len()
}

func copySession(s *domain.Session) *domain.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
