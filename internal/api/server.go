package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/consult-assist-server/internal/domain"
	"github.com/consult-assist-server/internal/middleware"
	"github.com/consult-assist-server/internal/service"
)

// HealthCheck probes one dependency of the server.
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	logger        *logrus.Logger
	consultations *service.ConsultationService
	directory     domain.PatientDirectory
	healthChecks  map[string]HealthCheck
	limiter       *middleware.RateLimiter
	router        *gin.Engine
	server        *http.Server
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server) error

// WithHealthCheck adds a named dependency probe to GET /health.
func WithHealthCheck(name string, check HealthCheck) ServerOption {
	return func(s *Server) error {
		if name == "" || check == nil {
			return fmt.Errorf("health check needs a name and a probe")
		}
		s.healthChecks[name] = check
		return nil
	}
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, logger *logrus.Logger, consultations *service.ConsultationService, directory domain.PatientDirectory, opts ...ServerOption) (*Server, error) {
	if consultations == nil {
		return nil, fmt.Errorf("consultation service is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("patient directory is required")
	}

	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		configManager: configManager,
		logger:        logger,
		consultations: consultations,
		directory:     directory,
		healthChecks:  make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(logger))
	if cfg.RateLimit.Enabled {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		router.Use(middleware.RateLimit(s.limiter))
	}

	s.router = router
	s.setupRoutes(cfg.Server.RequestTimeout)

	return s, nil
}

// Handler returns the HTTP handler of the server.
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

	if s.limiter != nil {
		go s.cleanupLimiter(ctx)
	}

	select {
	case err, ok := <-errCh:
		if ok {
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

func (s *Server) cleanupLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.limiter.Cleanup(); removed > 0 {
				s.logger.WithField("clients", removed).Debug("Dropped idle rate limit buckets")
			}
		}
	}
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(requestTimeout time.Duration) {
	s.router.GET("/health", s.handleHealth)

	// Long-lived; the request timeout does not apply
	s.router.GET("/ws/consultations/:id", s.handleConsultationStream)

	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.RequestTimeout(requestTimeout))
	{
		v1.GET("/patients", s.handleListPatients)
		v1.GET("/patients/risk-summary", s.handleRiskSummary)
		v1.GET("/patients/:id", s.handleGetPatient)

		v1.POST("/consultations", s.handleStartConsultation)
		v1.GET("/consultations/:id", s.handleGetConsultation)
		v1.DELETE("/consultations/:id", s.handleDiscardConsultation)
		v1.POST("/consultations/:id/turns", s.handleSubmitTurn)
		v1.POST("/consultations/:id/end", s.handleEndConsultation)
		v1.GET("/consultations/:id/summary", s.handleGetSummary)

		v1.POST("/suggestions/select", s.handleSelectSuggestion)
		v1.GET("/rules", s.handleListRules)
	}
}

// corsMiddleware allows browser front ends on any origin; no credentials are involved.
func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", middleware.CorrelationIDHeader},
		ExposeHeaders:   []string{middleware.CorrelationIDHeader, "Retry-After"},
		MaxAge:          12 * time.Hour,
	})
}
