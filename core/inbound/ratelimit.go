package inbound

import (
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between processed messages of the
// same sender. A zero interval disables it.
type RateLimiter struct {
	interval time.Duration

	mu       sync.Mutex
	lastSeen map[string]time.Time
	pruneAt  time.Time
}

// NewRateLimiter builds a limiter.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		lastSeen: make(map[string]time.Time),
	}
}

// Allow reports whether sender may be processed at now and records it if so.
// A refused message does not extend the window.
func (l *RateLimiter) Allow(sender string, now time.Time) bool {
	if l == nil || l.interval <= 0 || sender == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.pruneAt) {
		for id, ts := range l.lastSeen {
			if now.Sub(ts) >= l.interval {
				delete(l.lastSeen, id)
			}
		}
		l.pruneAt = now.Add(time.Minute)
	}

	if last, ok := l.lastSeen[sender]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.lastSeen[sender] = now
	return true
}
