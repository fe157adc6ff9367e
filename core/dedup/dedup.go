// Package dedup remembers webhook message ids so Meta redeliveries are not
// answered twice.
package dedup

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a message id is remembered.
const DefaultTTL = 24 * time.Hour

// Deduper reports whether a message id was already seen and marks it seen.
type Deduper interface {
	Seen(ctx context.Context, messageID string) (bool, error)
}

// Memory is an in-process Deduper with per-id expiry.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	seen    map[string]time.Time
	now     func() time.Time
	sweepAt time.Time
}

// NewMemory returns a Memory deduper. ttl <= 0 selects DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Seen implements Deduper. An empty id is never treated as a duplicate.
func (m *Memory) Seen(_ context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.After(m.sweepAt) {
		for id, exp := range m.seen {
			if now.After(exp) {
				delete(m.seen, id)
			}
		}
		m.sweepAt = now.Add(m.ttl / 4)
	}

	if exp, ok := m.seen[messageID]; ok && !now.After(exp) {
		return true, nil
	}
	m.seen[messageID] = now.Add(m.ttl)
	return false, nil
}

// Len returns the number of remembered ids.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
