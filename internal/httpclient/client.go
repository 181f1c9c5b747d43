// Package httpclient builds the outbound *http.Client shared by API clients.
package httpclient

import (
	"net"
	"net/http"
	"time"

	"folio/config"
)

// Config tunes the outbound transport.
type Config struct {
	// Timeout caps a whole request. Per-attempt deadlines come from the caller's context.
	Timeout               time.Duration
	ResponseHeaderTimeout time.Duration
	DialTimeout           time.Duration
	TLSHandshakeTimeout   time.Duration
	IdleConnTimeout       time.Duration
	MaxIdleConnsPerHost   int
}

// DefaultConfig suits a handful of small JSON endpoints on one host.
func DefaultConfig() Config {
	return Config{
		Timeout:               30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		DialTimeout:           10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   10,
	}
}

// FromConfig overlays the http section of the application config (seconds) on the defaults.
func FromConfig(cfg config.HTTPConfig) Config {
	c := DefaultConfig()
	if cfg.Timeout > 0 {
		c.Timeout = time.Duration(cfg.Timeout) * time.Second
	}
	if cfg.ResponseHeaderTimeout > 0 {
		c.ResponseHeaderTimeout = time.Duration(cfg.ResponseHeaderTimeout) * time.Second
	}
	return c
}

// New returns a client on a clone of http.DefaultTransport tuned by cfg.
func New(cfg Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout
	transport.TLSHandshakeTimeout = cfg.TLSHandshakeTimeout
	transport.IdleConnTimeout = cfg.IdleConnTimeout
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	// Compression is negotiated and decoded by the caller.
	transport.DisableCompression = true

	return &http.Client{Transport: transport, Timeout: cfg.Timeout}
}

// NewDefault returns New(DefaultConfig()).
func NewDefault() *http.Client {
	return New(DefaultConfig())
}
