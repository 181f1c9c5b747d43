// Package cache provides a TTL key/value store abstraction.
// Supports both in-memory and Redis backends for multi-instance deployments.
package cache

import (
	"context"
	"time"
)

// Store defines the interface for cache storage.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the stored value and true, or nil and false when the key is
	// missing or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A ttl <= 0 means the entry never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by this store.
	Clear(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}
