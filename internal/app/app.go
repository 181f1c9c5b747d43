// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the folio server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"folio/config"
	"folio/internal/analytics"
	"folio/internal/apiclient"
	"folio/internal/cache"
	"folio/internal/contact"
	"folio/internal/httpclient"
	"folio/internal/ratelimit"
	"folio/internal/resume"
	"folio/internal/server"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config   *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	cache    cache.Store
	limiter  ratelimit.Limiter
	server   *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the configuration options for creating an App.
type Config struct {
	// AppConfig holds the loaded application configuration produced by config.Load.
	AppConfig *config.LoadResult

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(_ context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	if cfg.AppConfig.Config == nil {
		return nil, fmt.Errorf("app config contains nil Config")
	}

	appCfg := cfg.AppConfig.Config
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{
		config:   appCfg,
		logger:   logger,
		registry: registry,
	}

	store, limiter, err := newBackends(appCfg, logger)
	if err != nil {
		return nil, err
	}
	app.cache = store
	app.limiter = limiter

	mailer := newMailer(appCfg.Contact.Mail, logger)

	source := newResumeSource(appCfg, registry, logger)

	services := server.Services{
		Resume: resume.NewService(source, store, resume.Options{
			CacheTTL:      seconds(appCfg.Resume.CacheTTL),
			StatsCacheTTL: seconds(appCfg.Resume.StatsCacheTTL),
			Logger:        logger,
		}),
		Contact: contact.NewService(limiter, mailer, appCfg.Contact.Recipient, logger),
		Analytics: analytics.NewService(
			analytics.NewStore(appCfg.Analytics.MaxEventsPerSession, appCfg.Analytics.RecentLimit),
			analytics.NewMetrics(registry),
			logger,
		),
	}

	app.logStartupInfo(cfg.AppConfig.Source)

	app.server = server.New(services, &server.Config{
		MetricsEnabled:  appCfg.Metrics.Enabled,
		MetricsEndpoint: appCfg.Metrics.Endpoint,
		BodySizeLimit:   appCfg.Server.BodySizeLimit,
		CORSAllowOrigin: appCfg.Server.CORSAllowOrigin,
		Registry:        registry,
	})

	return app, nil
}

// newBackends builds the response cache and the contact rate limiter.
// With Redis both share one connection; the cache owns and closes it.
func newBackends(cfg *config.Config, logger *slog.Logger) (cache.Store, ratelimit.Limiter, error) {
	limits := ratelimit.Config{
		Max:    cfg.Contact.RateLimit.Max,
		Window: seconds(cfg.Contact.RateLimit.Window),
	}

	if cfg.Cache.Type != "redis" {
		logger.Info("cache configured", "type", "memory")
		return cache.NewMemory(), ratelimit.NewMemory(limits), nil
	}

	store, err := cache.NewRedis(cache.RedisConfig{
		URL:       cfg.Cache.Redis.URL,
		KeyPrefix: cfg.Cache.Redis.KeyPrefix,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize redis cache: %w", err)
	}
	prefix := cfg.Cache.Redis.KeyPrefix
	if prefix == "" {
		prefix = cache.DefaultKeyPrefix
	}
	logger.Info("cache configured", "type", "redis", "prefix", prefix)
	return store, ratelimit.NewRedis(store.Client(), prefix, limits), nil
}

func newMailer(cfg config.MailConfig, logger *slog.Logger) contact.Mailer {
	if cfg.Type == "smtp" {
		logger.Info("contact mail delivery", "type", "smtp", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)
		return contact.NewSMTPMailer(contact.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}
	logger.Info("contact mail delivery", "type", "log", "simulated_failure_rate", cfg.SimulatedFailureRate)
	return contact.NewLogMailer(logger, cfg.SimulatedFailureRate)
}

func newResumeSource(cfg *config.Config, registry prometheus.Registerer, logger *slog.Logger) resume.Source {
	switch {
	case cfg.Resume.File != "":
		logger.Info("resume source", "type", "file", "path", cfg.Resume.File)
		return resume.FileSource{Path: cfg.Resume.File}
	case cfg.Resume.RemoteURL != "":
		logger.Info("resume source", "type", "remote", "url", cfg.Resume.RemoteURL)
		client := NewClient(cfg, cfg.Resume.RemoteURL,
			apiclient.WithMetrics(apiclient.NewMetrics(registry)),
			apiclient.WithLogger(logger),
		)
		return resume.APISource{Client: client, Timeout: seconds(cfg.Client.Timeout)}
	default:
		logger.Info("resume source", "type", "built-in")
		return resume.StaticSource{}
	}
}

// NewClient builds an API client from the client and HTTP sections of cfg.
// An empty baseURL falls back to cfg.Client.BaseURL.
func NewClient(cfg *config.Config, baseURL string, opts ...apiclient.Option) *apiclient.Client {
	if baseURL == "" {
		baseURL = cfg.Client.BaseURL
	}
	transport := httpclient.FromConfig(cfg.HTTP)

	headers := apiclient.DefaultConfig().Headers
	if cfg.Client.UserAgent != "" {
		headers["User-Agent"] = cfg.Client.UserAgent
	}

	opts = append([]apiclient.Option{apiclient.WithHTTPClient(httpclient.New(transport))}, opts...)
	return apiclient.New(apiclient.Config{
		BaseURL: baseURL,
		Timeout: seconds(cfg.Client.Timeout),
		Retries: cfg.Client.Retries,
		Headers: headers,
	}, opts...)
}

// Handler exposes the HTTP server for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server and blocks until it stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	a.logger.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			a.logger.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server and releases backends.
// It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	a.logger.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.limiter != nil {
		if err := a.limiter.Close(); err != nil {
			a.logger.Error("rate limiter close error", "error", err)
			errs = append(errs, fmt.Errorf("rate limiter close: %w", err))
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache close error", "error", err)
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) logStartupInfo(source string) {
	cfg := a.config

	if source != "" {
		a.logger.Info("config loaded", "file", source)
	}

	if cfg.Metrics.Enabled {
		a.logger.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		a.logger.Info("prometheus metrics disabled")
	}

	a.logger.Info("contact rate limit",
		"max", cfg.Contact.RateLimit.Max,
		"window_seconds", cfg.Contact.RateLimit.Window,
	)
	a.logger.Info("analytics store",
		"max_events_per_session", cfg.Analytics.MaxEventsPerSession,
		"recent_limit", cfg.Analytics.RecentLimit,
	)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
