package traffic

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dyluth/stratux-companion/internal/settings"
	"github.com/dyluth/stratux-companion/internal/worker"
	"github.com/dyluth/stratux-companion/pkg/geo"
)

const (
	// DefaultInterval is both the reconnect delay and the read timeout.
	DefaultInterval = 15 * time.Second

	// PingTimeout bounds the liveness probe after connecting.
	PingTimeout = 10 * time.Second
)

// SettingsSource provides the current settings snapshot.
type SettingsSource interface {
	Get() settings.Settings
}

// PositionSource provides the own-ship position contacts are measured from.
type PositionSource interface {
	CurrentPosition() geo.Fix
}

// Tracker maintains the live map of contacts heard on the traffic feed.
//
// Each worker tick (re)connects to the feed and consumes messages until the
// connection drops or the worker shuts down. Readers always get copies; the
// map is evicted of stale contacts before every read.
type Tracker struct {
	settings SettingsSource
	position PositionSource
	dialer   Dialer
	now      func() time.Time

	mu       sync.Mutex
	contacts map[string]Contact

	messagesSeen atomic.Uint64
}

// NewTracker creates a tracker that dials the settings' traffic endpoint through dialer.
func NewTracker(s SettingsSource, position PositionSource, dialer Dialer) *Tracker {
	return &Tracker{
		settings: s,
		position: position,
		dialer:   dialer,
		now:      time.Now,
		contacts: make(map[string]Contact),
	}
}

// Tick connects to the traffic feed and consumes it until the connection ends.
// Shutdown wakes a tick that is waiting on the feed; a message being handled
// is always finished first.
func (t *Tracker) Tick(ctx context.Context, w *worker.Worker) error {
	ctx, cancel := w.WithShutdown(ctx)
	defer cancel()

	endpoint := t.settings.Get().TrafficEndpoint
	log.Printf("[DEBUG] Trying to connect to stratux traffic endpoint at %s", endpoint)

	conn, err := t.dialer.Dial(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	defer conn.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, PingTimeout)
	err = conn.Ping(pingCtx)
	pingCancel()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("traffic endpoint did not answer ping: %w", err)
	}

	log.Printf("[INFO] Successfully connected to stratux traffic endpoint")
	return t.consume(ctx, w, conn)
}

// consume reads messages until shutdown, context cancellation or a closed connection.
// A read timeout only refreshes the heartbeat.
func (t *Tracker) consume(ctx context.Context, w *worker.Worker, conn Conn) error {
	timeout := w.Interval()
	if timeout <= 0 {
		timeout = DefaultInterval
	}

	for !w.ShuttingDown() && ctx.Err() == nil {
		data, err := conn.Read(ctx, timeout)
		switch {
		case errors.Is(err, ErrReadTimeout):
			w.Beat()
			continue
		case errors.Is(err, ErrClosed):
			log.Printf("[WARN] Traffic connection unexpectedly closed")
			return nil
		case ctx.Err() != nil:
			log.Printf("[DEBUG] Traffic feed read interrupted by shutdown")
			return nil
		case err != nil:
			return fmt.Errorf("failed to read traffic message: %w", err)
		}

		log.Printf("[DEBUG] Traffic message received: %s", data)
		if err := t.HandleMessage(data); err != nil {
			log.Printf("[WARN] Dropping traffic message: %v", err)
			continue
		}
		w.Beat()
	}

	return nil
}

// HandleMessage decodes one report and upserts the resulting contact.
// Reports flagged as having no valid position are skipped without error.
func (t *Tracker) HandleMessage(data []byte) error {
	t.messagesSeen.Add(1)

	msg, err := DecodeMessage(data)
	if err != nil {
		return err
	}

	if !msg.PositionValid {
		log.Printf("[DEBUG] Skipping traffic message with invalid position for %s", FormatICAO(msg.IcaoAddr))
		return nil
	}

	contact := NewContact(msg, t.position.CurrentPosition(), t.now())

	t.mu.Lock()
	t.contacts[contact.ICAO] = contact
	t.mu.Unlock()

	return nil
}

// TrafficState returns a copy of all contacts within the tracking window.
func (t *Tracker) TrafficState() map[string]Contact {
	window := t.settings.Get().TrackTime()
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.evictLocked(now, window)

	state := make(map[string]Contact, len(t.contacts))
	for icao, c := range t.contacts {
		state[icao] = c
	}
	return state
}

// ClosestTraffic returns current contacts sorted by ascending distance.
func (t *Tracker) ClosestTraffic() []Contact {
	state := t.TrafficState()

	contacts := make([]Contact, 0, len(state))
	for _, c := range state {
		contacts = append(contacts, c)
	}
	SortByDistance(contacts)
	return contacts
}

// MessagesSeen returns the total number of messages received, valid or not.
func (t *Tracker) MessagesSeen() uint64 {
	return t.messagesSeen.Load()
}

func (t *Tracker) evictLocked(now time.Time, window time.Duration) {
	for icao, c := range t.contacts {
		if now.Sub(c.UpdatedAt) > window {
			log.Printf("[DEBUG] %s has outdated", icao)
			delete(t.contacts, icao)
		}
	}
}

// SortByDistance sorts contacts nearest first. Equal distances are ordered by ICAO.
func SortByDistance(contacts []Contact) {
	slices.SortFunc(contacts, func(a, b Contact) int {
		if c := cmp.Compare(a.DistanceM, b.DistanceM); c != 0 {
			return c
		}
		return cmp.Compare(a.ICAO, b.ICAO)
	})
}
