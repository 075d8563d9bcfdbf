// Package http wires the gin route tree and the API server lifecycle.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/prometheus"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/interfaces/http/handlers"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and infrastructure the route tree
// needs.
type RouterConfig struct {
	AnalyticsHandler *handlers.AnalyticsHandler
	HealthHandler    *handlers.HealthHandler

	Logger      logging.Logger
	Metrics     *prometheus.AppMetrics
	Collector   prometheus.MetricsCollector
	MetricsPath string

	// Mode is the gin mode: debug, release, or test.
	Mode string
}

// NewRouter builds the complete route tree: probes and metrics outside the
// API group, analytics endpoints under /api/v1.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}

	if cfg.Collector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.Collector.Handler()))
	}

	api := r.Group("/api/v1")
	if h := cfg.AnalyticsHandler; h != nil {
		api.GET("/patients/:patientID/pivot", h.Pivot)
		api.GET("/patients/:patientID/heatmap", h.Heatmap)
		api.GET("/patients/:patientID/bubble", h.Bubble)
		api.GET("/analytics/legend", h.Legend)
	}

	return r
}
