package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/em-billing-mcp-server/internal/codetable"
	"github.com/em-billing-mcp-server/internal/course"
	"github.com/em-billing-mcp-server/internal/domain"
	"github.com/em-billing-mcp-server/internal/progress"
	"github.com/em-billing-mcp-server/internal/service"
	"github.com/em-billing-mcp-server/internal/session"
)

type stubConfig struct {
	cfg *domain.Config
}

func (s *stubConfig) GetConfig() *domain.Config { return s.cfg }
func (s *stubConfig) GetServerConfig() *domain.ServerConfig { return &s.cfg.Server }
func (s *stubConfig) GetCodeTableConfig() *domain.CodeTableConfig { return &s.cfg.CodeTable }
func (s *stubConfig) GetProgressConfig() *domain.ProgressConfig { return &s.cfg.Progress }
func (s *stubConfig) Reload() error { return nil }
func (s *stubConfig) Validate() error { return nil }
func (s *stubConfig) IsProduction() bool { return false }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger, _ := test.NewNullLogger()

	registry, err := codetable.NewRegistry(context.Background(), &codetable.StaticSource{}, logger)
	require.NoError(t, err)
	calculator := service.NewCalculatorService(logger, registry, 0)

	store, err := progress.NewSQLiteStore(filepath.Join(t.TempDir(), "progress.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	tracker := progress.NewTracker(store, course.DefaultCatalog(), logger)

	sessions, err := session.NewStaticProvider(nil)
	require.NoError(t, err)

	cfg := &stubConfig{cfg: &domain.Config{
		Server:  domain.ServerConfig{RequestTimeout: 5 * time.Second},
		Logging: domain.LoggingConfig{Level: "info"},
	}}
	srv := NewServer(cfg, calculator, tracker, sessions, logger)
	gin.SetMode(gin.TestMode)
	return srv
}

func do(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, codetable.DefaultTable().Len(), body["code_count"])
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestCodesEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/api/v1/codes?category=wellness", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Codes []domain.BillingCode `json:"codes"`
	}](t, w)
	require.Len(t, list.Codes, 2)
	assert.Equal(t, "G0438", list.Codes[0].ID)

	w = do(t, srv, http.MethodGet, "/api/v1/codes/99214", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.75, decode[domain.BillingCode](t, w).RVU)

	w = do(t, srv, http.MethodGet, "/api/v1/codes/00000", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	apiErr := decode[domain.APIError](t, w)
	assert.Equal(t, domain.ErrCodeUnknownCode, apiErr.Code)
	assert.Equal(t, "00000", apiErr.Details)
}

func TestClassifyMDMEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/api/v1/mdm/classify", "", ClassifyMDMRequest{ModerateCount: 1, HighCount: 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.Moderate, decode[domain.ComplexityVerdict](t, w).Level)

	w = do(t, srv, http.MethodPost, "/api/v1/mdm/classify", "", ClassifyMDMRequest{
		Criteria: []string{"threat-to-life", "hospitalization-decision"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.High, decode[domain.ComplexityVerdict](t, w).Level)

	w = do(t, srv, http.MethodPost, "/api/v1/mdm/classify", "", ClassifyMDMRequest{ModerateCount: -1})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.ErrCodeInvalidInput, decode[domain.APIError](t, w).Code)

	w = do(t, srv, http.MethodGet, "/api/v1/mdm/criteria", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAggregateEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := service.AggregateRequest{
		PatientCount: 100,
		Selections: []domain.ServiceSelection{
			{CodeID: "G0438", Enabled: true, Percentage: 30, Kind: domain.KindInitialVisit},
			{CodeID: "G0439", Enabled: true, Kind: domain.KindSubsequentVisit},
		},
	}
	w := do(t, srv, http.MethodPost, "/api/v1/revenue/aggregate", "", req)
	require.Equal(t, http.StatusOK, w.Code)
	breakdown := decode[domain.RevenueBreakdown](t, w)
	require.Len(t, breakdown.LineItems, 2)
	assert.Equal(t, 30, breakdown.LineItems[0].Count)
	assert.Equal(t, 70, breakdown.LineItems[1].Count)
	assert.Equal(t, service.DefaultConversionFactor, breakdown.ConversionFactor)

	req.Selections = append(req.Selections, domain.ServiceSelection{CodeID: "XXXXX", Enabled: true, Percentage: 10})
	w = do(t, srv, http.MethodPost, "/api/v1/revenue/aggregate", "", req)
	require.Equal(t, http.StatusNotFound, w.Code)

	req.PatientCount = -5
	w = do(t, srv, http.MethodPost, "/api/v1/revenue/aggregate", "", req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAggregateRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/revenue/aggregate", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "body", decode[domain.APIError](t, w).Details)
}

func TestWellnessAndEncounterEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/api/v1/revenue/wellness", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/revenue/wellness", "", service.WellnessProjection{
		PatientCount:      200,
		InitialPercentage: 25,
	})
	require.Equal(t, http.StatusOK, w.Code)
	breakdown := decode[domain.RevenueBreakdown](t, w)
	require.Len(t, breakdown.LineItems, 2)
	assert.Equal(t, 50, breakdown.LineItems[0].Count)
	assert.Equal(t, 150, breakdown.LineItems[1].Count)

	w = do(t, srv, http.MethodPost, "/api/v1/revenue/encounter", "", EncounterRequest{Codes: []string{"99214", "G2211"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 4.23, decode[domain.RevenueBreakdown](t, w).TotalRVU, 1e-9)

	w = do(t, srv, http.MethodPost, "/api/v1/revenue/encounter", "", EncounterRequest{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScoreEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/api/v1/score", "", ScoreRequest{
		Criteria:  []bool{true, true, true, false, false},
		Threshold: 3,
	})
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[domain.AppropriatenessResult](t, w)
	assert.True(t, result.Appropriate)
	assert.Equal(t, 3, result.SatisfiedCount)

	w = do(t, srv, http.MethodPost, "/api/v1/score", "", ScoreRequest{Threshold: -1})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodGet, "/api/v1/modifiers", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/modifiers/modifier-59/score", "", ModifierScoreRequest{
		Answers: []bool{true, false, true},
	})
	require.Equal(t, http.StatusOK, w.Code)
	result = decode[domain.AppropriatenessResult](t, w)
	assert.False(t, result.Appropriate)
	assert.Equal(t, "modifier-59", result.ChecklistID)

	w = do(t, srv, http.MethodPost, "/api/v1/modifiers/modifier-99/score", "", ModifierScoreRequest{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModulesAndProgress(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/api/v1/modules", session.DemoFreeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	modules := decode[struct {
		Modules []ModuleView `json:"modules"`
	}](t, w).Modules
	require.NotEmpty(t, modules)
	for _, m := range modules {
		assert.Equal(t, !m.Premium, m.Accessible, m.ID)
	}

	w = do(t, srv, http.MethodGet, "/api/v1/progress", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, srv, http.MethodGet, "/api/v1/progress", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/progress/em-foundations", session.DemoFreeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "em-foundations", decode[progress.Completion](t, w).ModuleID)

	w = do(t, srv, http.MethodPost, "/api/v1/progress/annual-wellness-visits", session.DemoFreeToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/progress/no-such-module", session.DemoFreeToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, srv, http.MethodGet, "/api/v1/progress", session.DemoFreeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[progress.Summary](t, w)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 3, summary.Total)

	w = do(t, srv, http.MethodDelete, "/api/v1/progress/em-foundations", session.DemoFreeToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, srv, http.MethodGet, "/api/v1/progress", session.DemoFreeToken, nil)
	assert.Equal(t, 0, decode[progress.Summary](t, w).Completed)
}

func TestAdminReloadRequiresPaidSession(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/api/v1/admin/codes/reload", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/admin/codes/reload", session.DemoFreeToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/admin/codes/reload", session.DemoPaidToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.EqualValues(t, codetable.DefaultTable().Len(), body["code_count"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.NewValidationError("f", "m", nil)))
	assert.Equal(t, http.StatusNotFound, statusFor(&domain.UnknownCodeError{CodeID: "x"}))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrNotFound))
	assert.Equal(t, http.StatusForbidden, statusFor(domain.ErrForbidden))
	assert.Equal(t, http.StatusUnauthorized, statusFor(domain.ErrUnauthorized))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
