// Package quota enforces the monthly conversation cap. A conversation is one
// user's first message within a calendar day; further messages the same day
// ride on the already-counted slot.
package quota

import (
	"fmt"
	"sync"
	"time"
)

type Tracker struct {
	mu      sync.Mutex
	year    int
	month   time.Month
	counted map[string]time.Time // phone -> last counted calendar date
	count   int
	limit   int
	now     func() time.Time
}

func NewTracker(monthlyLimit int) *Tracker {
	return &Tracker{
		counted: make(map[string]time.Time),
		limit:   monthlyLimit,
		now:     time.Now,
	}
}

// SetClock overrides the wall clock, for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// IsAllowed reports whether the user may converse this month. The check and
// the increment happen under one lock so the limit cannot be over-admitted by
// racing events.
func (t *Tracker) IsAllowed(phone string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now().UTC()
	if now.Year() != t.year || now.Month() != t.month {
		// New billing period, start over.
		t.year = now.Year()
		t.month = now.Month()
		t.counted = make(map[string]time.Time)
		t.count = 0
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if last, ok := t.counted[phone]; ok && last.Equal(today) {
		return true // already counted today
	}
	if t.count >= t.limit {
		return false
	}
	t.counted[phone] = today
	t.count++
	return true
}

// UsageStats renders the current month's consumption for the usage command.
func (t *Tracker) UsageStats() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	remaining := t.limit - t.count
	if remaining < 0 {
		remaining = 0
	}
	pct := 0
	if t.limit > 0 {
		pct = t.count * 100 / t.limit
	}
	return fmt.Sprintf("📊 *Monthly Usage*\n\n"+
		"💬 Conversations: %d/%d\n"+
		"✅ Remaining: %d\n"+
		"📈 Used: %d%%", t.count, t.limit, remaining, pct)
}

// LimitMessage is sent when the cap is reached.
func (t *Tracker) LimitMessage() string {
	return "🚦 *Monthly limit reached!*\n\n" +
		"This bot has used up its free conversation quota for the month. " +
		"Service resumes automatically when the new month starts. Thanks for your patience! 🙏"
}
