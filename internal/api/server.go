package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/srthknk/biomuseum/internal/api/middleware"
	"github.com/srthknk/biomuseum/internal/buildinfo"
	"github.com/srthknk/biomuseum/internal/logger"
	"github.com/srthknk/biomuseum/internal/observability"
	"github.com/srthknk/biomuseum/internal/pipeline"
)

// Route paths.
const (
	APIPrefix          = "/api/v1"
	VerifiedImagesPath = APIPrefix + "/organisms/images/verified"
	HealthPath         = APIPrefix + "/health"

	// AdminVerifiedImagesPath is the route used by the admin dashboard.
	AdminVerifiedImagesPath = "/admin/organisms/ai-generate-images-verified"
)

// Searcher runs the verified image pipeline.
type Searcher interface {
	Search(ctx context.Context, req pipeline.Request) (pipeline.Response, error)
}

// Server is the HTTP server for the BioMuseum API.
type Server struct {
	echo      *echo.Echo
	config    *Config
	searcher  Searcher
	metrics   *observability.Metrics
	build     buildinfo.BuildInfo
	log       logger.Logger
	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(log logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithMetrics enables request metrics and the metrics endpoint.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithBuildInfo sets the version reported by the health endpoint.
func WithBuildInfo(b buildinfo.BuildInfo) ServerOption {
	return func(s *Server) {
		s.build = b
	}
}

// New creates a new HTTP server serving searcher.
func New(config *Config, searcher Searcher, opts ...ServerOption) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	if searcher == nil {
		return nil, fmt.Errorf("invalid server configuration: searcher is required")
	}

	s := &Server{
		config:    config,
		searcher:  searcher,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = GetLogger()
	}
	if s.build == nil {
		s.build = &buildinfo.Context{}
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Listen),
		logger.Bool("metrics", s.metricsEnabled()))

	return s, nil
}

func (s *Server) metricsEnabled() bool {
	return s.config.MetricsEnabled && s.metrics != nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(echomw.RequestID())
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log, func(c echo.Context) bool {
		return c.Path() == s.config.MetricsPath
	}))

	if s.metrics != nil {
		s.echo.Use(mw.NewTelemetryMiddleware(s.metrics.HTTP).Middleware())
	}

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins
	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.echo.GET(HealthPath, s.HealthCheck)
	s.echo.POST(VerifiedImagesPath, s.VerifiedImages)
	s.echo.POST(AdminVerifiedImagesPath, s.VerifiedImages)

	if s.metricsEnabled() {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}
}

// Start serves HTTP requests until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", logger.String("address", s.config.Listen))
		if err := s.echo.Start(s.config.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutdown signal received, initiating graceful shutdown")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.log.Info("server shutdown complete")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
