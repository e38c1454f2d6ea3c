package codetable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/em-billing-mcp-server/internal/domain"
)

// RemoteConfig configures a RemoteSource.
type RemoteConfig struct {
	URL       string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second
}

// RemoteSource fetches codes from an HTTP endpoint returning
// {"codes": [{"id": ..., "description": ..., "rvu": ..., "category": ...}]}.
type RemoteSource struct {
	url        string
	apiKey     string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

type remotePayload struct {
	Codes []domain.BillingCode `json:"codes"`
}

// NewRemoteSource creates a remote source.
func NewRemoteSource(config RemoteConfig, logger *logrus.Logger) (*RemoteSource, error) {
	if strings.TrimSpace(config.URL) == "" {
		return nil, domain.NewValidationError("code_table.remote_url", "remote URL is required", config.URL)
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 1
	}

	s := &RemoteSource{
		url:    config.URL,
		apiKey: config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:    logger,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "code-table-remote",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
	return s, nil
}

// Name implements Source.
func (s *RemoteSource) Name() string { return SourceRemote }

// State reports the circuit breaker state.
func (s *RemoteSource) State() gobreaker.State {
	return s.breaker.State()
}

// LoadCodes implements Source.
func (s *RemoteSource) LoadCodes(ctx context.Context) ([]domain.BillingCode, error) {
	if err := s.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.BillingCode), nil
}

func (s *RemoteSource) fetch(ctx context.Context) ([]domain.BillingCode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch code table: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("code table endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload remotePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode code table: %w", err)
	}
	if len(payload.Codes) == 0 {
		return nil, fmt.Errorf("code table endpoint returned no codes")
	}
	return payload.Codes, nil
}
