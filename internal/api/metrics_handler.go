package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/jjjimenez100/backend-coding-test/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

// MetricsHandler serves metrics and health endpoints
type MetricsHandler struct {
	metrics *metrics.Metrics
	checks  map[string]HealthCheck
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(collector *metrics.Metrics, checks map[string]HealthCheck) *MetricsHandler {
	return &MetricsHandler{
		metrics: collector,
		checks:  checks,
	}
}

// RegisterRoutes registers the handler's routes
func (h *MetricsHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", h.HandleHealth)
	router.GET("/health/details", h.HandleHealthDetails)
	router.GET("/metrics", h.HandleGetMetrics)
}

// HandleHealth answers liveness probes with plain text
func (h *MetricsHandler) HandleHealth(c *gin.Context) {
	c.String(http.StatusOK, "Healthy")
}

// HandleHealthDetails runs every dependency check and reports each result
func (h *MetricsHandler) HandleHealthDetails(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	for name, check := range h.checks {
		err := check(ctx)
		if err != nil {
			log.Warn().Err(err).Str("component", name).Msg("Health check failed")
		}
		h.metrics.SetHealth(name, err == nil)
	}

	healthy := h.metrics.Healthy()
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":  healthy,
		"details": h.metrics.GetHealthChecks(),
	})
}

// HandleGetMetrics returns all metrics
func (h *MetricsHandler) HandleGetMetrics(c *gin.Context) {
	h.metrics.SetGauge("goroutines", int64(runtime.NumGoroutine()))
	c.JSON(http.StatusOK, h.metrics.GetAllMetrics())
}
