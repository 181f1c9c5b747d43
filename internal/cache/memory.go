package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

func (e memoryEntry) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.storedAt) > e.ttl
}

// Memory implements Store with a process-local map.
// Expired entries are dropped lazily on lookup; there is no size bound.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// NewMemoryWithClock creates an in-memory cache that reads time from now.
func NewMemoryWithClock(now func() time.Time) *Memory {
	m := NewMemory()
	m.now = now
	return m
}

// Get returns a live entry. An entry older than its ttl is deleted and reported as a miss.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if entry.expired(m.now()) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set replaces any previous entry for key.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{value: value, storedAt: m.now(), ttl: ttl}
	return nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Clear drops every entry. Clearing an empty cache is a no-op.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.entries)
	return nil
}

// Len reports the number of stored entries, including expired ones not yet evicted.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close is a no-op for the memory cache.
func (m *Memory) Close() error {
	return nil
}
