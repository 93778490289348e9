// Package ratelimit guards the expensive document pipeline with a per-user
// fixed window. It is independent of the monthly conversation quota.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

type Limiter struct {
	mu    sync.Mutex
	users map[string]window
	limit int
	span  time.Duration
	now   func() time.Time
}

func NewLimiter(limit int, span time.Duration) *Limiter {
	return &Limiter{
		users: make(map[string]window),
		limit: limit,
		span:  span,
		now:   time.Now,
	}
}

// SetClock overrides the wall clock, for tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// IsAllowed consumes one slot in the user's current window, starting a fresh
// window when none exists or the old one has expired.
func (l *Limiter) IsAllowed(phone string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.users[phone]
	if !ok || now.Sub(w.start) > l.span {
		l.users[phone] = window{count: 1, start: now}
		return true
	}
	if w.count < l.limit {
		w.count++
		l.users[phone] = w
		return true
	}
	return false
}

// Prune drops windows that expired before now; the maintenance scheduler calls
// it so the map does not grow with one-off users.
func (l *Limiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for phone, w := range l.users {
		if now.Sub(w.start) > l.span {
			delete(l.users, phone)
			removed++
		}
	}
	return removed
}
