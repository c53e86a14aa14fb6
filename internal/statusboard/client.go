// Package statusboard mirrors the companion's live state into Redis so it can
// be inspected from another machine. Nothing in the companion reads it back.
package statusboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dyluth/stratux-companion/internal/traffic"
	"github.com/redis/go-redis/v9"
)

// Snapshot is one published view of the companion.
type Snapshot struct {
	Instance    string               `json:"instance"`
	PublishedAt time.Time            `json:"published_at"`
	Heartbeats  map[string]time.Time `json:"heartbeats"`
	Traffic     []traffic.Contact    `json:"traffic"`
	Alarms      []traffic.Contact    `json:"alarms"`
}

// Client provides instance-scoped Redis operations for the status mirror.
// It is safe for concurrent use.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a client for the given instance. instanceName must not be empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// NewClientFromURL parses a redis:// URL and creates a client.
func NewClientFromURL(redisURL, instanceName string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewClient(opts, instanceName)
}

// Instance returns the instance name the client is scoped to.
func (c *Client) Instance() string {
	return c.instanceName
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// WriteSnapshot stores the snapshot atomically, expiring after ttl, and
// announces it on the snapshot events channel.
func (c *Client) WriteSnapshot(ctx context.Context, s *Snapshot, ttl time.Duration) error {
	trafficJSON, err := json.Marshal(s.Traffic)
	if err != nil {
		return fmt.Errorf("failed to marshal traffic: %w", err)
	}
	alarmsJSON, err := json.Marshal(s.Alarms)
	if err != nil {
		return fmt.Errorf("failed to marshal alarms: %w", err)
	}

	heartbeats := make(map[string]interface{}, len(s.Heartbeats))
	for name, at := range s.Heartbeats {
		heartbeats[name] = at.UTC().Format(time.RFC3339Nano)
	}

	hbKey := HeartbeatsKey(c.instanceName)
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, hbKey)
		if len(heartbeats) > 0 {
			pipe.HSet(ctx, hbKey, heartbeats)
			pipe.Expire(ctx, hbKey, ttl)
		}
		pipe.Set(ctx, TrafficKey(c.instanceName), trafficJSON, ttl)
		pipe.Set(ctx, AlarmsKey(c.instanceName), alarmsJSON, ttl)
		pipe.Set(ctx, PublishedKey(c.instanceName), s.PublishedAt.UTC().Format(time.RFC3339Nano), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write snapshot to Redis: %w", err)
	}

	event, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot for event: %w", err)
	}
	if err := c.rdb.Publish(ctx, SnapshotEventsChannel(c.instanceName), event).Err(); err != nil {
		return fmt.Errorf("failed to publish snapshot event: %w", err)
	}

	return nil
}

// ReadSnapshot reads the last stored snapshot. It returns redis.Nil when
// nothing has been published or the snapshot has expired; use IsNotFound.
func (c *Client) ReadSnapshot(ctx context.Context) (*Snapshot, error) {
	hb, err := c.rdb.HGetAll(ctx, HeartbeatsKey(c.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read heartbeats from Redis: %w", err)
	}

	trafficJSON, err := c.rdb.Get(ctx, TrafficKey(c.instanceName)).Bytes()
	if err != nil {
		if IsNotFound(err) {
			return nil, redis.Nil
		}
		return nil, fmt.Errorf("failed to read traffic from Redis: %w", err)
	}

	s := &Snapshot{Instance: c.instanceName, Heartbeats: make(map[string]time.Time, len(hb))}
	for name, raw := range hb {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid heartbeat for %s: %w", name, err)
		}
		s.Heartbeats[name] = at
	}

	if err := json.Unmarshal(trafficJSON, &s.Traffic); err != nil {
		return nil, fmt.Errorf("failed to decode traffic: %w", err)
	}

	alarmsJSON, err := c.rdb.Get(ctx, AlarmsKey(c.instanceName)).Bytes()
	switch {
	case IsNotFound(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read alarms from Redis: %w", err)
	default:
		if err := json.Unmarshal(alarmsJSON, &s.Alarms); err != nil {
			return nil, fmt.Errorf("failed to decode alarms: %w", err)
		}
	}

	published, err := c.rdb.Get(ctx, PublishedKey(c.instanceName)).Result()
	switch {
	case IsNotFound(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read publish time from Redis: %w", err)
	default:
		if s.PublishedAt, err = time.Parse(time.RFC3339Nano, published); err != nil {
			return nil, fmt.Errorf("invalid publish time: %w", err)
		}
	}

	return s, nil
}

// SnapshotSubscription streams snapshots as they are published.
type SnapshotSubscription struct {
	pubsub    *redis.PubSub
	snapshots chan *Snapshot
	errs      chan error
	cancel    context.CancelFunc
}

// Snapshots returns the channel of decoded snapshots.
func (s *SnapshotSubscription) Snapshots() <-chan *Snapshot {
	return s.snapshots
}

// Errors returns the channel of decode errors. Undecodable events are skipped.
func (s *SnapshotSubscription) Errors() <-chan error {
	return s.errs
}

// Close ends the subscription.
func (s *SnapshotSubscription) Close() error {
	s.cancel()
	return s.pubsub.Close()
}

// SubscribeSnapshots subscribes to snapshot events. The subscription is
// confirmed before this returns, so no event published afterwards is missed.
func (c *Client) SubscribeSnapshots(ctx context.Context) (*SnapshotSubscription, error) {
	pubsub := c.rdb.Subscribe(ctx, SnapshotEventsChannel(c.instanceName))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to snapshot events: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &SnapshotSubscription{
		pubsub:    pubsub,
		snapshots: make(chan *Snapshot, 1),
		errs:      make(chan error, 1),
		cancel:    cancel,
	}

	go func() {
		defer close(sub.snapshots)
		defer close(sub.errs)

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var s Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &s); err != nil {
					select {
					case sub.errs <- fmt.Errorf("failed to decode snapshot event: %w", err):
					default:
					}
					continue
				}
				select {
				case sub.snapshots <- &s:
				case <-subCtx.Done():
					return
				}
			case <-subCtx.Done():
				return
			}
		}
	}()

	return sub, nil
}

// IsNotFound reports whether err means the snapshot does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
