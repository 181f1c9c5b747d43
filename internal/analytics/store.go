// Package analytics stores tracked events on the server and queues them on the client.
package analytics

import (
	"sync"

	"folio/internal/core"
)

// Store defaults.
const (
	DefaultMaxEventsPerSession = 1000
	DefaultRecentLimit         = 100
)

// SessionKey groups events by session and user.
func SessionKey(sessionID, userID string) string {
	if userID == "" {
		userID = "anonymous"
	}
	return sessionID + "-" + userID
}

// Store keeps events in memory grouped by session key. Each key holds at most
// maxPerSession events; the oldest are dropped first.
type Store struct {
	mu            sync.RWMutex
	sessions      map[string][]core.AnalyticsEvent
	order         []string
	maxPerSession int
	recentLimit   int
}

// NewStore creates a Store. Non-positive limits fall back to the defaults.
func NewStore(maxPerSession, recentLimit int) *Store {
	if maxPerSession <= 0 {
		maxPerSession = DefaultMaxEventsPerSession
	}
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	return &Store{
		sessions:      make(map[string][]core.AnalyticsEvent),
		maxPerSession: maxPerSession,
		recentLimit:   recentLimit,
	}
}

// Append adds events under key and returns how many the key now holds.
func (s *Store) Append(key string, events []core.AnalyticsEvent) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[key]
	if !ok {
		s.order = append(s.order, key)
	}

	merged := append(existing, events...)
	if over := len(merged) - s.maxPerSession; over > 0 {
		merged = append([]core.AnalyticsEvent(nil), merged[over:]...)
	}
	s.sessions[key] = merged
	return len(merged)
}

// Events returns a copy of the events stored under key.
func (s *Store) Events(key string) []core.AnalyticsEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.AnalyticsEvent(nil), s.sessions[key]...)
}

// Recent returns the last recentLimit events that carry a timestamp, across
// every session in first-seen order.
func (s *Store) Recent() []core.AnalyticsEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []core.AnalyticsEvent
	for _, key := range s.order {
		for _, e := range s.sessions[key] {
			if e.Timestamp != "" {
				all = append(all, e)
			}
		}
	}
	if len(all) > s.recentLimit {
		all = all[len(all)-s.recentLimit:]
	}
	if all == nil {
		all = []core.AnalyticsEvent{}
	}
	return all
}

// Summary reports the number of stored events and session keys.
func (s *Store) Summary() core.AnalyticsSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, events := range s.sessions {
		total += len(events)
	}
	return core.AnalyticsSummary{TotalEvents: total, ActiveSessions: len(s.sessions)}
}
