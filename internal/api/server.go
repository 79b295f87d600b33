package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jjjimenez100/backend-coding-test/config"
	"github.com/jjjimenez100/backend-coding-test/internal/metrics"
	"github.com/jjjimenez100/backend-coding-test/internal/services"
	"github.com/jjjimenez100/backend-coding-test/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultShutdownTimeout = 5 * time.Second

// Server represents the HTTP server
type Server struct {
	config      config.ServerConfig
	router      *gin.Engine
	httpServer  *http.Server
	rideService *services.RideService
	metrics     *metrics.Metrics
	tracer      tracing.Tracer
	checks      map[string]HealthCheck
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, rideService *services.RideService, collector *metrics.Metrics, tracer tracing.Tracer, checks map[string]HealthCheck) *Server {
	if collector == nil {
		collector = metrics.NewMetrics()
	}
	if tracer == nil {
		tracer = tracing.NewNoopTracer()
	}

	server := &Server{
		config:      cfg,
		rideService: rideService,
		metrics:     collector,
		tracer:      tracer,
		checks:      checks,
	}
	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(RequestID(), Logger(), Metrics(s.metrics))
	if app := s.tracer.Application(); app != nil {
		router.Use(NewRelic(app))
	}
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		WriteError(c, errors.Errorf("panic: %v", recovered))
		c.Abort()
	}))
	router.Use(ErrorHandler())

	NewRideHandler(s.rideService, s.tracer).RegisterRoutes(router)
	NewMetricsHandler(s.metrics, s.checks).RegisterRoutes(router)
	router.GET("/api-documentation/v1", HandleAPIDocs)

	return router
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Address).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
