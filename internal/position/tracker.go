package position

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/dyluth/stratux-companion/internal/worker"
	"github.com/dyluth/stratux-companion/pkg/geo"
)

// DefaultInterval is how often the situation endpoint is polled.
const DefaultInterval = 5 * time.Second

// Tracker keeps the last known own-ship position.
//
// Until the receiver reports a usable fix the tracker is in the unknown
// state and CurrentPosition returns the default position from settings.
// The first usable fix moves it to the fixed state and fires OnFirstFix
// exactly once.
type Tracker struct {
	settings   SettingsSource
	source     Source
	onFirstFix func(geo.Fix)

	current atomic.Pointer[Situation]
	fixed   atomic.Bool
}

// NewTracker creates a tracker reading from source. onFirstFix may be nil.
func NewTracker(s SettingsSource, source Source, onFirstFix func(geo.Fix)) *Tracker {
	return &Tracker{
		settings:   s,
		source:     source,
		onFirstFix: onFirstFix,
	}
}

// Tick polls the source once, bounded by the worker interval.
func (t *Tracker) Tick(ctx context.Context, w *worker.Worker) error {
	timeout := w.Interval()
	if timeout <= 0 {
		timeout = DefaultInterval
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	situation, err := t.source.Situation(ctx)
	if err != nil {
		return fmt.Errorf("failed to poll position: %w", err)
	}

	t.update(situation)
	return nil
}

// update applies a situation report. Reports without satellites or a valid fix are ignored.
func (t *Tracker) update(s Situation) {
	if s.Satellites == 0 || !s.Fix.Valid() {
		log.Printf("[DEBUG] No usable GPS fix (satellites=%d fix=%s)", s.Satellites, s.Fix)
		return
	}

	t.current.Store(&s)

	if t.fixed.CompareAndSwap(false, true) {
		log.Printf("[INFO] GPS fix acquired at %s with %d satellites", s.Fix, s.Satellites)
		if t.onFirstFix != nil {
			t.onFirstFix(s.Fix)
		}
	}
}

// Fixed reports whether a usable fix has been received.
func (t *Tracker) Fixed() bool {
	return t.fixed.Load()
}

// CurrentPosition returns the last known fix, or the default position from settings.
func (t *Tracker) CurrentPosition() geo.Fix {
	if s := t.current.Load(); s != nil {
		return s.Fix
	}
	return t.settings.Get().DefaultPosition
}

// Situation returns the last usable situation report, if any.
func (t *Tracker) Situation() (Situation, bool) {
	s := t.current.Load()
	if s == nil {
		return Situation{}, false
	}
	return *s, true
}
