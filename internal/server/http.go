// Package server exposes the folio HTTP API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"folio/config"
	"folio/internal/analytics"
	"folio/internal/contact"
	"folio/internal/resume"
)

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	MetricsEnabled  bool   // Whether to expose Prometheus metrics endpoint
	MetricsEndpoint string // HTTP path for metrics endpoint (default: /metrics)
	BodySizeLimit   int64  // Max request body size in bytes (default: 1MB)
	CORSAllowOrigin string // Access-Control-Allow-Origin value (default: *)
	// Registry collects HTTP metrics and backs the metrics endpoint.
	// A private registry with Go runtime collectors is created when nil.
	Registry *prometheus.Registry
}

// Services are the domain services behind the API routes.
type Services struct {
	Resume    *resume.Service
	Contact   *contact.Service
	Analytics *analytics.Service
}

// New creates a new HTTP server
func New(services Services, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	origin := cfg.CORSAllowOrigin
	if origin == "" {
		origin = "*"
	}
	handler := NewHandler(services, origin)

	// Global middleware stack (order matters)
	e.Use(requestID)
	e.Use(clientIP)
	e.Use(requestLogger(slog.Default()))
	e.Use(middleware.Recover())
	e.Use(instrument(newHTTPMetrics(registry)))

	bodySizeLimit := config.DefaultBodySizeLimit
	if cfg.BodySizeLimit > 0 {
		bodySizeLimit = cfg.BodySizeLimit
	}
	e.Use(middleware.BodyLimit(strconv.FormatInt(bodySizeLimit, 10)))

	// Public routes
	e.GET("/health", handler.Health)
	if cfg.MetricsEnabled {
		metricsPath := "/metrics"
		if cfg.MetricsEndpoint != "" {
			// Normalize path to prevent traversal attacks
			metricsPath = path.Clean(cfg.MetricsEndpoint)
		}
		e.GET(metricsPath, echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	// API routes
	api := e.Group("/api", allowOrigin(origin))
	api.POST("/contact", handler.Contact)
	api.OPTIONS("/contact", handler.preflight("POST, OPTIONS"))
	api.GET("/resume", handler.Resume)
	api.OPTIONS("/resume", handler.preflight("GET, OPTIONS"))
	api.GET("/resume/stats", handler.ResumeStats)
	api.OPTIONS("/resume/stats", handler.preflight("GET, OPTIONS"))
	api.GET("/analytics/events", handler.AnalyticsQuery)
	api.POST("/analytics/events", handler.AnalyticsEvents)
	api.OPTIONS("/analytics/events", handler.preflight("GET, POST, OPTIONS"))
	api.POST("/analytics/pageviews", handler.PageViews)
	api.OPTIONS("/analytics/pageviews", handler.preflight("POST, OPTIONS"))

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
