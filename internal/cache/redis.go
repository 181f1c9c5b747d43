package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key the Redis store writes.
const DefaultKeyPrefix = "folio:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379" or "redis://:password@host:6379/0")
	URL string

	// KeyPrefix is prepended to every key (defaults to "folio:")
	KeyPrefix string
}

// Redis implements Store on a Redis server.
// This is suitable for multi-instance deployments behind a load balancer.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to Redis and verifies the connection with PING.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	client, err := Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	slog.Info("redis cache connected", "prefix", prefix)

	return NewRedisWithClient(client, prefix), nil
}

// NewRedisWithClient wraps an existing client. The store takes ownership and closes it on Close.
func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Dial parses url, connects and pings.
func Dial(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Client exposes the underlying connection so other components can share it.
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Get retrieves a value from Redis.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cache from redis: %w", err)
	}
	return data, true, nil
}

// Set stores a value in Redis; expiry is enforced by Redis itself.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache in redis: %w", err)
	}
	return nil
}

// Delete removes a key from Redis.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key from redis: %w", err)
	}
	return nil
}

// Clear deletes every key under the store prefix.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to clear redis cache: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan redis cache: %w", err)
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to clear redis cache: %w", err)
		}
	}
	return nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
