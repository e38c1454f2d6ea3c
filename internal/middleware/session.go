package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/em-billing-mcp-server/internal/domain"
)

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Session resolves the bearer token through provider and stores the session
// in the gin context. Requests without a token continue anonymously; a token
// the provider rejects is a 401.
func Session(provider domain.SessionProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		s, err := provider.Resolve(c.Request.Context(), token)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrUnauthorized) {
				status = http.StatusUnauthorized
			}
			abort(c, status, err)
			return
		}

		c.Set(SessionKey, s)
		c.Next()
	}
}

// RequireSession rejects anonymous requests.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if SessionFrom(c) == nil {
			abort(c, http.StatusUnauthorized, domain.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// RequirePaid rejects anonymous and free sessions.
func RequirePaid() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := SessionFrom(c)
		if s == nil {
			abort(c, http.StatusUnauthorized, domain.ErrUnauthorized)
			return
		}
		if !s.IsPaid() {
			abort(c, http.StatusForbidden, domain.ErrForbidden)
			return
		}
		c.Next()
	}
}

// SessionFrom returns the session stored by Session, or nil.
func SessionFrom(c *gin.Context) *domain.Session {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*domain.Session)
	return s
}

func abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, &domain.APIError{
		Code:      domain.ErrorCode(err),
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
		RequestID: c.GetString(CorrelationIDKey),
	})
}
