package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemory_Allow(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewMemoryWithClock(Config{Max: 3, Window: time.Minute}, clock.Now)

	for i := 0; i < 3; i++ {
		ok, err := m.Allow(ctx, "contact:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i+1)
		clock.Advance(10 * time.Second)
	}

	ok, err := m.Allow(ctx, "contact:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok, "fourth request inside the window is denied")

	ok, err = m.Allow(ctx, "contact:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	// first hit was at t0; now is t0+30s. At t0+60s it is exactly one window old.
	clock.Advance(30 * time.Second)
	ok, err = m.Allow(ctx, "contact:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok, "oldest hit left the window")

	ok, err = m.Allow(ctx, "contact:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_DeniedRequestsAreNotRecorded(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewMemoryWithClock(Config{Max: 1, Window: time.Minute}, clock.Now)

	ok, _ := m.Allow(ctx, "k")
	require.True(t, ok)

	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Second)
		ok, _ = m.Allow(ctx, "k")
		assert.False(t, ok)
	}

	clock.Advance(10 * time.Second)
	ok, _ = m.Allow(ctx, "k")
	assert.True(t, ok, "retries while blocked must not extend the block")
}

func TestMemory_Defaults(t *testing.T) {
	m := NewMemoryWithClock(Config{}, time.Now)
	assert.Equal(t, DefaultMax, m.config.Max)
	assert.Equal(t, DefaultWindow, m.config.Window)
}

func TestMemory_Cleanup(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewMemoryWithClock(Config{Max: 3, Window: time.Minute}, clock.Now)

	_, _ = m.Allow(ctx, "old")
	clock.Advance(45 * time.Second)
	_, _ = m.Allow(ctx, "new")
	assert.Equal(t, 2, m.Keys())

	clock.Advance(30 * time.Second)
	m.cleanup()
	assert.Equal(t, 1, m.Keys())

	clock.Advance(time.Minute)
	m.cleanup()
	assert.Equal(t, 0, m.Keys())
}

func TestMemory_ConcurrentAllow(t *testing.T) {
	m := NewMemory(Config{Max: 10, Window: time.Minute})
	defer func() { _ = m.Close() }()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := m.Allow(context.Background(), "shared")
			assert.NoError(t, err)
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(10), allowed.Load())
}

func TestMemory_CloseIsIdempotent(t *testing.T) {
	m := NewMemory(Config{})
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}
