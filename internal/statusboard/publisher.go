package statusboard

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/stratux-companion/internal/traffic"
	"github.com/dyluth/stratux-companion/internal/worker"
)

// DefaultInterval is how often the mirror is refreshed.
const DefaultInterval = 5 * time.Second

// Keys written by the publisher live for this many intervals, so a stopped
// companion disappears from the board on its own.
const ttlIntervals = 3

type HeartbeatSource interface {
	Statuses(now time.Time) []worker.Status
}

type TrafficSource interface {
	ClosestTraffic() []traffic.Contact
}

type AlarmSource interface {
	Targets() []traffic.Contact
}

// Publisher is the worker task that writes snapshots to Redis.
type Publisher struct {
	client     *Client
	heartbeats HeartbeatSource
	traffic    TrafficSource
	alarms     AlarmSource
	now        func() time.Time
}

func NewPublisher(client *Client, heartbeats HeartbeatSource, t TrafficSource, alarms AlarmSource) *Publisher {
	return &Publisher{
		client:     client,
		heartbeats: heartbeats,
		traffic:    t,
		alarms:     alarms,
		now:        time.Now,
	}
}

// Tick publishes one snapshot.
func (p *Publisher) Tick(ctx context.Context, w *worker.Worker) error {
	interval := w.Interval()
	if interval <= 0 {
		interval = DefaultInterval
	}

	s := p.Snapshot()
	if err := p.client.WriteSnapshot(ctx, s, ttlIntervals*interval); err != nil {
		return fmt.Errorf("failed to publish status: %w", err)
	}
	return nil
}

// Snapshot collects the current state.
func (p *Publisher) Snapshot() *Snapshot {
	now := p.now()

	s := &Snapshot{
		Instance:    p.client.Instance(),
		PublishedAt: now,
		Heartbeats:  make(map[string]time.Time),
		Traffic:     p.traffic.ClosestTraffic(),
		Alarms:      p.alarms.Targets(),
	}
	for _, st := range p.heartbeats.Statuses(now) {
		if !st.LastHeartbeat.IsZero() {
			s.Heartbeats[st.Name] = st.LastHeartbeat
		}
	}
	return s
}
