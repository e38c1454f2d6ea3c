// Package api serves the calculators, the code table and course progress over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/em-billing-mcp-server/internal/domain"
	"github.com/em-billing-mcp-server/internal/middleware"
	"github.com/em-billing-mcp-server/internal/progress"
	"github.com/em-billing-mcp-server/internal/service"
)

// Version is reported by /health.
var Version = "v0.1.0"

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	calculator    *service.CalculatorService
	tracker       *progress.Tracker
	sessions      domain.SessionProvider
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(
	configManager domain.ConfigManager,
	calculator *service.CalculatorService,
	tracker *progress.Tracker,
	sessions domain.SessionProvider,
	logger *logrus.Logger,
) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	router.Use(middleware.Session(sessions))
	router.Use(middleware.AuditLogger(logger))

	server := &Server{
		configManager: configManager,
		calculator:    calculator,
		tracker:       tracker,
		sessions:      sessions,
		logger:        logger,
		router:        router,
	}

	server.setupRoutes()

	return server
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/codes", s.handleListCodes)
		v1.GET("/codes/:id", s.handleGetCode)

		v1.GET("/mdm/criteria", s.handleMDMCriteria)
		v1.POST("/mdm/classify", s.handleClassifyMDM)

		v1.POST("/revenue/aggregate", s.handleAggregate)
		v1.GET("/revenue/wellness", s.handleWellnessDefaults)
		v1.POST("/revenue/wellness", s.handleWellness)
		v1.POST("/revenue/encounter", s.handleEncounter)

		v1.GET("/modifiers", s.handleListModifiers)
		v1.POST("/modifiers/:id/score", s.handleScoreModifier)
		v1.POST("/score", s.handleScore)

		v1.GET("/modules", s.handleListModules)

		member := v1.Group("/progress", middleware.RequireSession())
		{
			member.GET("", s.handleGetProgress)
			member.POST("/:module", s.handleCompleteModule)
			member.DELETE("/:module", s.handleUncompleteModule)
		}

		admin := v1.Group("/admin", middleware.RequirePaid())
		{
			admin.POST("/codes/reload", s.handleReloadCodes)
		}
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch domain.ErrorCode(err) {
	case domain.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case domain.ErrCodeUnknownCode, domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeForbidden:
		return http.StatusForbidden
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an APIError. Internal errors are logged and
// their message is not exposed.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	requestID := c.GetString(middleware.CorrelationIDKey)

	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithField("correlation_id", requestID).Error("Request failed")
		message = "internal server error"
	}

	apiErr := domain.NewAPIError(domain.ErrorCode(err), message, "", requestID)
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		apiErr.Details = ve.Field
	}
	var uce *domain.UnknownCodeError
	if errors.As(err, &uce) {
		apiErr.Details = uce.CodeID
	}
	c.AbortWithStatusJSON(status, apiErr)
}

// bindJSON decodes the request body, reporting decode failures as invalid input.
func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.respondError(c, domain.NewValidationError("body", err.Error(), nil))
		return false
	}
	return true
}
