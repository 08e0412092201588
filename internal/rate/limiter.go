// Package rate provides a fixed-window request limiter used to slow
// credential guessing and comment flooding.
package rate

import (
	"sync"
	"time"
)

type Limiter interface {
	// Allow reports whether one more event is permitted for key within the
	// window, and how long until the window resets.
	Allow(key string, limit int, window time.Duration) (bool, time.Duration)
}

type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
	span    time.Duration
}

func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*window)}
}

func (m *MemoryLimiter) Allow(key string, limit int, span time.Duration) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	w, ok := m.windows[key]
	if !ok || now.After(w.resetAt) || w.span != span {
		if len(m.windows) >= maxTrackedKeys {
			m.prune(now)
		}
		w = &window{resetAt: now.Add(span), span: span}
		m.windows[key] = w
	}

	if w.count >= limit {
		return false, time.Until(w.resetAt)
	}

	w.count++
	return true, time.Until(w.resetAt)
}

const maxTrackedKeys = 10000

// prune drops windows that have already reset. Caller holds mu.
func (m *MemoryLimiter) prune(now time.Time) {
	for key, w := range m.windows {
		if now.After(w.resetAt) {
			delete(m.windows, key)
		}
	}
}
