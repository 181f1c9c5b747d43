package resume

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"folio/internal/cache"
	"folio/internal/core"
)

// Cache defaults.
const (
	DefaultCacheTTL      = 5 * time.Minute
	DefaultStatsCacheTTL = 10 * time.Minute
)

const (
	dataKey  = "resume:data"
	statsKey = "resume:stats"
)

// Options configures a Service.
type Options struct {
	CacheTTL      time.Duration
	StatsCacheTTL time.Duration
	Logger        *slog.Logger
}

// Service caches the resume document and answers queries over it.
type Service struct {
	source   Source
	cache    cache.Store
	ttl      time.Duration
	statsTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service reading from source and caching in store.
func NewService(source Source, store cache.Store, opts Options) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.StatsCacheTTL <= 0 {
		opts.StatsCacheTTL = DefaultStatsCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		source:   source,
		cache:    store,
		ttl:      opts.CacheTTL,
		statsTTL: opts.StatsCacheTTL,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Data returns the resume document, from cache unless forceRefresh is set or
// the entry expired. When the source fails the built-in document is returned
// and nothing is cached.
func (s *Service) Data(ctx context.Context, forceRefresh bool) (*core.ResumeData, error) {
	data, _, err := s.load(ctx, forceRefresh)
	return data, err
}

// load is Data that also reports whether the built-in document was served.
func (s *Service) load(ctx context.Context, forceRefresh bool) (*core.ResumeData, bool, error) {
	if !forceRefresh {
		var cached core.ResumeData
		if s.getCached(ctx, dataKey, &cached) {
			return &cached, false, nil
		}
	}

	data, err := s.source.Load(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		s.logger.Warn("resume source failed, serving built-in data", "error", err)
		return DefaultData(s.now()), true, nil
	}

	s.setCached(ctx, dataKey, data, s.ttl)
	if forceRefresh {
		if err := s.cache.Delete(ctx, statsKey); err != nil {
			s.logger.Warn("failed to drop cached resume stats", "error", err)
		}
	}
	return data, false, nil
}

// Stats returns summary figures, cached separately from the document.
// Stats over the built-in fallback are never cached.
func (s *Service) Stats(ctx context.Context) (*core.ResumeStats, error) {
	var cached core.ResumeStats
	if s.getCached(ctx, statsKey, &cached) {
		return &cached, nil
	}

	data, fallback, err := s.load(ctx, false)
	if err != nil {
		return nil, err
	}
	stats := ComputeStats(data, s.now())
	if !fallback {
		s.setCached(ctx, statsKey, stats, s.statsTTL)
	}
	return stats, nil
}

// ClearCache drops the cached document and stats.
func (s *Service) ClearCache(ctx context.Context) error {
	if err := s.cache.Delete(ctx, dataKey); err != nil {
		return err
	}
	return s.cache.Delete(ctx, statsKey)
}

// ExportJSON renders the document as indented JSON.
func (s *Service) ExportJSON(ctx context.Context) ([]byte, error) {
	data, err := s.Data(ctx, false)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

func (s *Service) getCached(ctx context.Context, key string, v any) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("resume cache lookup failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.logger.Warn("discarding unreadable resume cache entry", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Service) setCached(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("failed to encode resume cache entry", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, raw, ttl); err != nil {
		s.logger.Warn("failed to cache resume data", "key", key, "error", err)
	}
}
