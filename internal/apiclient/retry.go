package apiclient

import (
	"context"
	"time"
)

const (
	// DefaultInitialBackoff is the wait before the first retry.
	DefaultInitialBackoff = 1 * time.Second
	// DefaultMaxBackoff caps the exponential backoff.
	DefaultMaxBackoff = 10 * time.Second
)

// Policy decides how often a failed request is retried and how long to wait in between.
type Policy struct {
	// Retries is the number of attempts after the first one.
	Retries        int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// OnRetry, if set, is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns a policy with 1s/2s/4s... backoff capped at 10s.
func DefaultPolicy(retries int) Policy {
	return Policy{
		Retries:        retries,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
	}
}

// Backoff returns the delay before attempt n (n >= 1): initial * 2^(n-1), capped.
func (p Policy) Backoff(n int) time.Duration {
	if n < 1 {
		return 0
	}
	initial := p.InitialBackoff
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	limit := p.MaxBackoff
	if limit <= 0 {
		limit = DefaultMaxBackoff
	}
	d := initial
	for i := 1; i < n; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	return min(d, limit)
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempt budget (Retries+1) is spent. Attempts are strictly sequential.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	maxAttempts := p.Retries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := p.Backoff(attempt)
			if p.OnRetry != nil {
				p.OnRetry(attempt, backoff, lastErr)
			}
			if err := sleep(ctx, backoff); err != nil {
				return zero, err
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}
	}

	if lastErr != nil {
		return zero, lastErr
	}
	return zero, newMaxRetriesError()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
