package cache

import (
	"context"
	"sync"
	"testing"
	"time"
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

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("GetSetRoundTrip", func(t *testing.T) {
		m := NewMemory()

		if _, ok, err := m.Get(ctx, "missing"); err != nil || ok {
			t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
		}

		if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
			t.Fatalf("unexpected error on set: %v", err)
		}

		got, ok, err := m.Get(ctx, "k")
		if err != nil || !ok {
			t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
		}
		if string(got) != "v" {
			t.Errorf("expected v, got %q", got)
		}
	})

	t.Run("ExpiresAfterTTL", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		m := NewMemoryWithClock(clock.Now)
		ttl := 5 * time.Minute

		if err := m.Set(ctx, "GET:/api/resume:", []byte("resume"), ttl); err != nil {
			t.Fatal(err)
		}

		clock.Advance(ttl)
		if _, ok, _ := m.Get(ctx, "GET:/api/resume:"); !ok {
			t.Fatal("entry exactly at ttl should still be served")
		}

		clock.Advance(time.Millisecond)
		if _, ok, _ := m.Get(ctx, "GET:/api/resume:"); ok {
			t.Fatal("entry older than ttl should be a miss")
		}
		if m.Len() != 0 {
			t.Errorf("expired entry should be evicted on lookup, len=%d", m.Len())
		}
	})

	t.Run("ZeroTTLNeverExpires", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(0, 0)}
		m := NewMemoryWithClock(clock.Now)
		_ = m.Set(ctx, "k", []byte("v"), 0)
		clock.Advance(24 * time.Hour)
		if _, ok, _ := m.Get(ctx, "k"); !ok {
			t.Fatal("ttl 0 should not expire")
		}
	})

	t.Run("SetReplacesEntry", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(0, 0)}
		m := NewMemoryWithClock(clock.Now)
		_ = m.Set(ctx, "k", []byte("old"), time.Second)
		clock.Advance(900 * time.Millisecond)
		_ = m.Set(ctx, "k", []byte("new"), time.Second)
		clock.Advance(900 * time.Millisecond)

		got, ok, _ := m.Get(ctx, "k")
		if !ok || string(got) != "new" {
			t.Fatalf("expected fresh replacement, got %q ok=%v", got, ok)
		}
	})

	t.Run("ClearIsIdempotent", func(t *testing.T) {
		m := NewMemory()
		_ = m.Set(ctx, "a", []byte("1"), 0)
		_ = m.Set(ctx, "b", []byte("2"), 0)

		for i := 0; i < 2; i++ {
			if err := m.Clear(ctx); err != nil {
				t.Fatalf("clear %d: %v", i, err)
			}
			if m.Len() != 0 {
				t.Fatalf("expected empty cache after clear %d", i)
			}
		}
	})

	t.Run("Delete", func(t *testing.T) {
		m := NewMemory()
		_ = m.Set(ctx, "a", []byte("1"), 0)
		_ = m.Delete(ctx, "a")
		_ = m.Delete(ctx, "never-set")
		if _, ok, _ := m.Get(ctx, "a"); ok {
			t.Fatal("deleted key should miss")
		}
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		m := NewMemory()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := string(rune('a' + i%5))
				_ = m.Set(ctx, key, []byte{byte(i)}, time.Minute)
				_, _, _ = m.Get(ctx, key)
				if i%7 == 0 {
					_ = m.Clear(ctx)
				}
			}(i)
		}
		wg.Wait()
	})
}

func TestMemory_Close(t *testing.T) {
	if err := NewMemory().Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
