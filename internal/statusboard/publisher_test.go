package statusboard

import (
	"context"
	"testing"
	"time"

	"github.com/dyluth/stratux-companion/internal/traffic"
	"github.com/dyluth/stratux-companion/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHeartbeats []worker.Status

func (h staticHeartbeats) Statuses(now time.Time) []worker.Status { return h }

type staticContacts []traffic.Contact

func (c staticContacts) ClosestTraffic() []traffic.Contact { return c }
func (c staticContacts) Targets() []traffic.Contact        { return c }

func TestPublisher_Tick(t *testing.T) {
	client, mr := setupTestClient(t)
	beat := time.Date(2024, 1, 12, 7, 0, 0, 0, time.UTC)

	p := NewPublisher(client,
		staticHeartbeats{
			{Name: "traffic", LastHeartbeat: beat},
			{Name: "sound"},
		},
		staticContacts{{ICAO: "A84EF5"}, {ICAO: "59C822"}},
		staticContacts{{ICAO: "A84EF5"}},
	)
	w := worker.New("statusboard", DefaultInterval, p)

	require.NoError(t, p.Tick(context.Background(), w))
	assert.Equal(t, 3*DefaultInterval, mr.TTL(AlarmsKey("test-instance")))

	s, err := client.ReadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]time.Time{"traffic": beat}, s.Heartbeats, "workers without a heartbeat are omitted")
	assert.Len(t, s.Traffic, 2)
	require.Len(t, s.Alarms, 1)
	assert.Equal(t, "A84EF5", s.Alarms[0].ICAO)
}

func TestPublisher_RedisDown(t *testing.T) {
	client, mr := setupTestClient(t)
	mr.Close()

	p := NewPublisher(client, staticHeartbeats{}, staticContacts{}, staticContacts{})
	err := p.Tick(context.Background(), worker.New("statusboard", DefaultInterval, p))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish status")
}
