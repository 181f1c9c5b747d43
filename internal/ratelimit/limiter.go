// Package ratelimit bounds how often a key may perform an action inside a
// rolling time window. Supports in-memory and Redis backends.
package ratelimit

import (
	"context"
	"time"
)

// Default limits for the contact endpoint.
const (
	DefaultMax    = 3
	DefaultWindow = 60 * time.Second
)

// Limiter decides whether another action is allowed for key.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow records the action and returns true when fewer than the maximum
	// actions happened for key in the trailing window. Denied actions are not
	// recorded.
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases background resources.
	Close() error
}

// Config holds limiter settings.
type Config struct {
	Max    int
	Window time.Duration
}

func (c Config) withDefaults() Config {
	if c.Max <= 0 {
		c.Max = DefaultMax
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	return c
}
