package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the sorted set to the window, then admits the hit only
// when the remaining count is below the limit.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// Redis is a sliding-log limiter shared by every instance using the same server.
type Redis struct {
	client *redis.Client
	prefix string
	config Config
	now    func() time.Time
}

// NewRedis creates a limiter on client. The caller keeps ownership of client.
func NewRedis(client *redis.Client, prefix string, cfg Config) *Redis {
	return &Redis{
		client: client,
		prefix: prefix + "ratelimit:",
		config: cfg.withDefaults(),
		now:    time.Now,
	}
}

// Allow implements Limiter.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	res, err := slidingWindow.Run(ctx, r.client,
		[]string{r.prefix + key},
		r.now().UnixMilli(),
		r.config.Window.Milliseconds(),
		r.config.Max,
		uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return res == 1, nil
}

// Close is a no-op; the client is owned by the caller.
func (r *Redis) Close() error {
	return nil
}
