package display

import (
	"context"
	"time"
)

// DefaultFPS is the default frame rate.
const DefaultFPS = 5

// Governor paces frames to a fixed rate.
type Governor struct {
	frame time.Duration
	now   func() time.Time
	next  time.Time
}

// NewGovernor creates a governor for fps frames per second. Non-positive
// rates fall back to DefaultFPS.
func NewGovernor(fps int) *Governor {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Governor{frame: time.Second / time.Duration(fps), now: time.Now}
}

// FrameDuration returns the target time between frames.
func (g *Governor) FrameDuration() time.Duration {
	return g.frame
}

// Wait blocks until the next frame is due. A caller that fell behind by more
// than a frame is not made to catch up with a burst.
func (g *Governor) Wait(ctx context.Context) error {
	now := g.now()
	if g.next.IsZero() || now.Sub(g.next) > g.frame {
		g.next = now
	}

	delay := g.next.Sub(now)
	g.next = g.next.Add(g.frame)

	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
