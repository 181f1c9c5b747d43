// Package apiclient provides the HTTP client used to talk to a folio API:
// - JSON request encoding and envelope unwrapping
// - Retries with exponential backoff (408, 429, 5xx, timeouts, transport failures)
// - A TTL cache for GET responses
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"sync"
	"time"

	"folio/internal/cache"
	"folio/internal/httpclient"
)

// DefaultCacheTTL is how long a successful GET response is served from cache.
const DefaultCacheTTL = 5 * time.Minute

// Config holds client-wide defaults.
type Config struct {
	// BaseURL is prepended to every endpoint.
	BaseURL string
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// Retries is the number of attempts after the first one.
	Retries int
	// Headers are sent with every request; per-call headers override them.
	Headers map[string]string
}

// DefaultConfig returns the stock configuration. BaseURL comes from FOLIO_API_URL.
func DefaultConfig() Config {
	return Config{
		BaseURL: os.Getenv("FOLIO_API_URL"),
		Timeout: 10 * time.Second,
		Retries: 3,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"User-Agent":   "Resume-Website/1.0",
		},
	}
}

// ConfigPatch changes selected defaults. Nil fields are left alone; Headers are merged key by key.
type ConfigPatch struct {
	BaseURL *string
	Timeout *time.Duration
	Retries *int
	Headers map[string]string
}

// Client is safe for concurrent use.
type Client struct {
	mu     sync.RWMutex
	config Config

	exec     *executor
	cache    cache.Store
	cacheTTL time.Duration
	metrics  *Metrics
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.exec.httpClient = hc }
}

// WithCache replaces the default in-memory response cache.
func WithCache(store cache.Store) Option {
	return func(c *Client) { c.cache = store }
}

// WithCacheTTL changes how long GET responses stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cacheTTL = ttl }
}

// WithMetrics records request metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client. Missing Timeout defaults to 10s and a nil Headers map to the stock headers.
func New(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Headers == nil {
		cfg.Headers = def.Headers
	} else {
		cfg.Headers = maps.Clone(cfg.Headers)
	}

	c := &Client{
		config:   cfg,
		exec:     &executor{httpClient: httpclient.NewDefault()},
		cache:    cache.NewMemory(),
		cacheTTL: DefaultCacheTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetConfig applies patch to the client defaults. In-flight calls keep the values they started with.
func (c *Client) SetConfig(patch ConfigPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if patch.BaseURL != nil {
		c.config.BaseURL = *patch.BaseURL
	}
	if patch.Timeout != nil && *patch.Timeout > 0 {
		c.config.Timeout = *patch.Timeout
	}
	if patch.Retries != nil && *patch.Retries >= 0 {
		c.config.Retries = *patch.Retries
	}
	if len(patch.Headers) > 0 {
		headers := maps.Clone(c.config.Headers)
		if headers == nil {
			headers = make(map[string]string, len(patch.Headers))
		}
		maps.Copy(headers, patch.Headers)
		c.config.Headers = headers
	}
}

// Config returns a copy of the current defaults.
func (c *Client) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg := c.config
	cfg.Headers = maps.Clone(c.config.Headers)
	return cfg
}

// ClearCache drops every cached response.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.cache.Clear(ctx)
}

// RequestOption overrides a default for a single call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	timeout time.Duration
	retries int
	headers map[string]string
}

// WithTimeout overrides the per-attempt timeout.
func WithTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetries overrides the retry count. Zero disables retries.
func WithRetries(n int) RequestOption {
	return func(o *requestOptions) {
		if n >= 0 {
			o.retries = n
		}
	}
}

// WithHeader sets a header for this call only.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) { o.headers[key] = value }
}

// Get fetches endpoint, serving from cache when a fresh entry exists.
func (c *Client) Get(ctx context.Context, endpoint string, opts ...RequestOption) (*Payload, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil, opts)
}

// Post sends body to endpoint.
func (c *Client) Post(ctx context.Context, endpoint string, body any, opts ...RequestOption) (*Payload, error) {
	return c.do(ctx, http.MethodPost, endpoint, body, opts)
}

// Put sends body to endpoint.
func (c *Client) Put(ctx context.Context, endpoint string, body any, opts ...RequestOption) (*Payload, error) {
	return c.do(ctx, http.MethodPut, endpoint, body, opts)
}

// Patch sends body to endpoint.
func (c *Client) Patch(ctx context.Context, endpoint string, body any, opts ...RequestOption) (*Payload, error) {
	return c.do(ctx, http.MethodPatch, endpoint, body, opts)
}

// Delete calls endpoint with DELETE.
func (c *Client) Delete(ctx context.Context, endpoint string, opts ...RequestOption) (*Payload, error) {
	return c.do(ctx, http.MethodDelete, endpoint, nil, opts)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, opts []RequestOption) (*Payload, error) {
	cfg := c.Config()

	ro := requestOptions{
		timeout: cfg.Timeout,
		retries: cfg.Retries,
		headers: cfg.Headers,
	}
	for _, opt := range opts {
		opt(&ro)
	}

	bodyBytes, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	url := cfg.BaseURL + endpoint
	fp := Fingerprint(method, url, bodyBytes)
	cacheable := method == http.MethodGet

	if cacheable {
		if p, ok := c.lookup(ctx, fp); ok {
			c.metrics.recordCache(true)
			return p, nil
		}
		c.metrics.recordCache(false)
	}

	policy := DefaultPolicy(ro.retries)
	policy.sleep = c.sleep
	policy.OnRetry = func(attempt int, delay time.Duration, lastErr error) {
		c.metrics.recordRetry(method)
		c.logger.Debug("retrying request",
			"method", method,
			"url", url,
			"attempt", attempt,
			"delay", delay,
			"error", lastErr,
		)
	}

	start := time.Now()
	payload, err := Do(ctx, policy, func(ctx context.Context) (*Payload, error) {
		return c.exec.do(ctx, attempt{
			method:  method,
			url:     url,
			headers: ro.headers,
			body:    bodyBytes,
			timeout: ro.timeout,
		})
	})
	c.metrics.recordRequest(method, err, time.Since(start))
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := c.cache.Set(ctx, fp, encodePayload(payload), c.cacheTTL); err != nil {
			c.logger.Warn("failed to cache response", "url", url, "error", err)
		}
	}
	return payload, nil
}

func (c *Client) lookup(ctx context.Context, fp string) (*Payload, bool) {
	raw, ok, err := c.cache.Get(ctx, fp)
	if err != nil {
		c.logger.Warn("cache lookup failed", "key", fp, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return decodePayload(raw)
}

// encodeBody serializes a request body. []byte and string are sent verbatim;
// anything else is JSON encoded.
func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case json.RawMessage:
		return b, nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		return data, nil
	}
}

// GetJSON fetches endpoint and decodes the payload into T.
func GetJSON[T any](ctx context.Context, c *Client, endpoint string, opts ...RequestOption) (T, error) {
	var out T
	p, err := c.Get(ctx, endpoint, opts...)
	if err != nil {
		return out, err
	}
	err = p.Decode(&out)
	return out, err
}

// PostJSON posts body to endpoint and decodes the payload into T.
func PostJSON[T any](ctx context.Context, c *Client, endpoint string, body any, opts ...RequestOption) (T, error) {
	var out T
	p, err := c.Post(ctx, endpoint, body, opts...)
	if err != nil {
		return out, err
	}
	err = p.Decode(&out)
	return out, err
}
