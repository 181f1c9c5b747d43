package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a sliding-log limiter held in process memory.
type Memory struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	config Config
	now    func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMemory creates a limiter and starts a loop that drops idle keys once per window.
func NewMemory(cfg Config) *Memory {
	m := newMemory(cfg, time.Now)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		runCleanupLoop(m.stop, m.config.Window, m.cleanup)
	}()
	return m
}

// NewMemoryWithClock creates a limiter driven by now. No cleanup loop is started.
func NewMemoryWithClock(cfg Config, now func() time.Time) *Memory {
	return newMemory(cfg, now)
}

func newMemory(cfg Config, now func() time.Time) *Memory {
	return &Memory{
		hits:   make(map[string][]time.Time),
		config: cfg.withDefaults(),
		now:    now,
		stop:   make(chan struct{}),
	}
}

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	recent := prune(m.hits[key], now.Add(-m.config.Window))
	if len(recent) >= m.config.Max {
		m.hits[key] = recent
		return false, nil
	}
	m.hits[key] = append(recent, now)
	return true, nil
}

// Keys returns the number of tracked keys.
func (m *Memory) Keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hits)
}

// cleanup drops keys whose hits have all left the window.
func (m *Memory) cleanup() {
	cutoff := m.now().Add(-m.config.Window)

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, hits := range m.hits {
		recent := prune(hits, cutoff)
		if len(recent) == 0 {
			delete(m.hits, key)
			continue
		}
		m.hits[key] = recent
	}
}

// Close stops the cleanup loop.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
	return nil
}

// prune keeps hits strictly newer than cutoff. hits is sorted ascending.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0:0], hits[i:]...)
}
