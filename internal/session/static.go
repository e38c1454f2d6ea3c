// Package session resolves bearer tokens into sessions. There is no real
// authentication: tokens map to fixed demo users.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/em-billing-mcp-server/internal/domain"
)

// Demo tokens always available from NewStaticProvider.
const (
	DemoFreeToken = "demo-free"
	DemoPaidToken = "demo-paid"
)

// StaticProvider resolves tokens from a fixed table.
type StaticProvider struct {
	sessions map[string]domain.Session
}

// NewStaticProvider parses "token:user:role" entries on top of the demo pair.
func NewStaticProvider(entries []string) (*StaticProvider, error) {
	p := &StaticProvider{sessions: map[string]domain.Session{
		DemoFreeToken: {UserID: "demo-free-user", DisplayName: "Demo (free)", Role: domain.RoleFree},
		DemoPaidToken: {UserID: "demo-paid-user", DisplayName: "Demo (paid)", Role: domain.RolePaid},
	}}

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, domain.NewValidationError("session.tokens", "entry must be token:user:role", entry)
		}
		token, user, role := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), domain.Role(strings.TrimSpace(parts[2]))
		if token == "" || user == "" {
			return nil, domain.NewValidationError("session.tokens", "token and user are required", entry)
		}
		if !role.IsValid() {
			return nil, domain.NewValidationError("session.tokens", fmt.Sprintf("unknown role %q", role), entry)
		}
		p.sessions[token] = domain.Session{UserID: user, DisplayName: user, Role: role}
	}
	return p, nil
}

// Resolve implements domain.SessionProvider.
func (p *StaticProvider) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	s, ok := p.sessions[strings.TrimSpace(token)]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return &s, nil
}
