package alarm

import (
	"sync"
	"time"
)

// Throttle lets an event through at most once per window.
type Throttle struct {
	window time.Duration

	mu    sync.Mutex
	last  time.Time
	fired bool
}

// NewThrottle creates a throttle that has never fired.
func NewThrottle(window time.Duration) *Throttle {
	return &Throttle{window: window}
}

// Allow reports whether at least one window has elapsed since the last
// allowed firing. An allowed call records now as the new firing time.
func (t *Throttle) Allow(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fired && now.Sub(t.last) < t.window {
		return false
	}
	t.last = now
	t.fired = true
	return true
}
