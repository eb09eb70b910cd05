package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryLimiter keeps buckets in process memory. It backs the Redis limiter while Redis is unreachable.
type MemoryLimiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	log  *slog.Logger
	now  func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter returns an empty in-memory limiter.
func NewMemoryLimiter(log *slog.Logger) *MemoryLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &MemoryLimiter{hits: make(map[string][]time.Time), log: log, now: time.Now}
}

// Allow records a hit against b when the rule still has room.
func (m *MemoryLimiter) Allow(_ context.Context, b Bucket, rule Rule) (Decision, error) {
	if rule.Limit <= 0 {
		return rejectAll(b, rule), nil
	}

	now := m.now()
	key := b.Key()

	m.mu.Lock()
	defer m.mu.Unlock()

	hits := dropExpired(m.hits[key], now.Add(-rule.Window))
	if len(hits) >= rule.Limit {
		m.hits[key] = hits
		return Decision{Bucket: b, RetryAfter: hits[0].Add(rule.Window).Sub(now)}, nil
	}

	hits = append(hits, now)
	m.hits[key] = hits
	return Decision{Bucket: b, Allowed: true, Remaining: rule.Limit - len(hits)}, nil
}

// Cleanup forgets buckets whose latest hit is older than maxAge.
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, hits := range m.hits {
		if len(hits) == 0 || hits[len(hits)-1].Before(cutoff) {
			delete(m.hits, key)
			removed++
		}
	}
	return removed
}

// dropExpired removes hits at or before cutoff. hits is ordered oldest first.
func dropExpired(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
