package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runAsync starts w.Run in the background and returns a channel closed when it exits.
func runAsync(ctx context.Context, w *Worker) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit in time")
	}
}

func TestWorker_HeartbeatAdvancesOnSuccess(t *testing.T) {
	var ticks atomic.Int32
	w := New("ok", 5*time.Millisecond, TaskFunc(func(ctx context.Context, w *Worker) error {
		ticks.Add(1)
		return nil
	}))

	assert.True(t, w.LastHeartbeat().IsZero(), "no heartbeat before the first tick")

	done := runAsync(context.Background(), w)
	require.Eventually(t, func() bool { return ticks.Load() >= 1 }, time.Second, time.Millisecond)
	first := w.LastHeartbeat()
	require.False(t, first.IsZero())

	require.Eventually(t, func() bool { return w.LastHeartbeat().After(first) }, time.Second, time.Millisecond)

	w.Shutdown()
	waitDone(t, done)
}

func TestWorker_FailingTickStallsHeartbeatButKeepsRunning(t *testing.T) {
	var failing, healthy atomic.Int32

	bad := New("bad", 2*time.Millisecond, TaskFunc(func(ctx context.Context, w *Worker) error {
		failing.Add(1)
		return errors.New("feed unreachable")
	}))
	good := New("good", 2*time.Millisecond, TaskFunc(func(ctx context.Context, w *Worker) error {
		healthy.Add(1)
		return nil
	}))

	group := NewGroup(bad, good)
	groupDone := make(chan error, 1)
	go func() { groupDone <- group.Run(context.Background()) }()

	require.Eventually(t, func() bool { return failing.Load() >= 5 && healthy.Load() >= 5 }, 2*time.Second, time.Millisecond)

	assert.True(t, bad.LastHeartbeat().IsZero(), "failing worker must never record a heartbeat")
	assert.False(t, good.LastHeartbeat().IsZero(), "sibling keeps beating")

	group.Shutdown()
	select {
	case err := <-groupDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("group did not exit")
	}
}

func TestWorker_PanicIsTreatedAsFailure(t *testing.T) {
	var ticks atomic.Int32
	w := New("panicky", time.Millisecond, TaskFunc(func(ctx context.Context, w *Worker) error {
		ticks.Add(1)
		panic("corrupt message")
	}))

	done := runAsync(context.Background(), w)
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
	w.Shutdown()
	waitDone(t, done)

	assert.True(t, w.LastHeartbeat().IsZero())
}

func TestWorker_ShutdownDoesNotPreemptTick(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var ticks atomic.Int32
	var sawCancel atomic.Bool

	w := New("slow", time.Hour, TaskFunc(func(ctx context.Context, w *Worker) error {
		ticks.Add(1)
		close(entered)
		<-release
		if ctx.Err() != nil {
			sawCancel.Store(true)
		}
		return nil
	}))

	done := runAsync(context.Background(), w)
	<-entered

	w.Shutdown()
	assert.True(t, w.ShuttingDown())

	select {
	case <-done:
		t.Fatal("worker exited while a tick was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	waitDone(t, done)

	assert.Equal(t, int32(1), ticks.Load(), "no further tick after shutdown")
	assert.False(t, sawCancel.Load(), "shutdown must not cancel the tick context")
	assert.False(t, w.LastHeartbeat().IsZero(), "the finished tick still records its heartbeat")
}

func TestWorker_ShutdownInterruptsSleep(t *testing.T) {
	var ticks atomic.Int32
	w := New("sleepy", time.Hour, TaskFunc(func(ctx context.Context, w *Worker) error {
		ticks.Add(1)
		return nil
	}))

	done := runAsync(context.Background(), w)
	require.Eventually(t, func() bool { return ticks.Load() == 1 }, time.Second, time.Millisecond)

	w.Shutdown()
	w.Shutdown() // idempotent
	waitDone(t, done)
}

func TestWorker_ContextCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := New("ctx", time.Hour, TaskFunc(func(ctx context.Context, w *Worker) error { return nil }))

	done := runAsync(ctx, w)
	require.Eventually(t, func() bool { return !w.LastHeartbeat().IsZero() }, time.Second, time.Millisecond)
	cancel()
	waitDone(t, done)
}

func TestWorker_ZeroIntervalRunsBackToBack(t *testing.T) {
	var ticks atomic.Int32
	w := New("render", 0, TaskFunc(func(ctx context.Context, w *Worker) error {
		if ticks.Add(1) >= 50 {
			w.Shutdown()
		}
		return nil
	}))

	done := runAsync(context.Background(), w)
	waitDone(t, done)
	assert.Equal(t, int32(50), ticks.Load())
}

func TestWorker_NegativeIntervalClampedToZero(t *testing.T) {
	w := New("neg", -time.Second, TaskFunc(func(ctx context.Context, w *Worker) error { return nil }))
	assert.Equal(t, time.Duration(0), w.Interval())
}

func TestWorker_Healthy(t *testing.T) {
	base := time.Date(2024, 1, 12, 7, 10, 0, 0, time.UTC)
	clock := base
	w := New("clocked", 15*time.Second, TaskFunc(func(ctx context.Context, w *Worker) error { return nil }))
	w.now = func() time.Time { return clock }

	t.Run("never started is unhealthy", func(t *testing.T) {
		assert.False(t, w.Healthy(base))
	})

	t.Run("started without heartbeat is healthy within window", func(t *testing.T) {
		w.started.Store(base.UnixNano())
		assert.True(t, w.Healthy(base.Add(29*time.Second)))
		assert.False(t, w.Healthy(base.Add(31*time.Second)))
	})

	t.Run("heartbeat resets the window", func(t *testing.T) {
		clock = base.Add(40 * time.Second)
		w.Beat()
		assert.Equal(t, clock, w.LastHeartbeat().UTC())
		assert.True(t, w.Healthy(clock.Add(30*time.Second)))
		assert.False(t, w.Healthy(clock.Add(30*time.Second+time.Nanosecond)))
	})

	t.Run("short intervals use the minimum window", func(t *testing.T) {
		fast := New("fast", 500*time.Millisecond, nil)
		assert.Equal(t, MinHealthWindow, fast.HealthWindow())
	})
}

func TestGroup_Statuses(t *testing.T) {
	a := New("a", time.Second, nil)
	b := New("b", 2*time.Second, nil)
	g := NewGroup(a)
	g.Add(b)

	now := time.Now()
	a.started.Store(now.UnixNano())
	a.Beat()

	statuses := g.Statuses(now)
	require.Len(t, statuses, 2)
	assert.Equal(t, "a", statuses[0].Name)
	assert.True(t, statuses[0].Healthy)
	assert.Equal(t, "b", statuses[1].Name)
	assert.False(t, statuses[1].Healthy)
	assert.False(t, g.Healthy(now))
	assert.Len(t, g.Workers(), 2)
}

func TestWorker_WithShutdown(t *testing.T) {
	t.Run("cancelled by shutdown", func(t *testing.T) {
		w := New("feed", time.Hour, TaskFunc(func(ctx context.Context, w *Worker) error { return nil }))
		ctx, cancel := w.WithShutdown(context.Background())
		defer cancel()

		assert.NoError(t, ctx.Err())
		w.Shutdown()

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("shutdown did not cancel the derived context")
		}
		select {
		case <-w.Done():
		default:
			t.Fatal("Done must be closed after Shutdown")
		}
	})

	t.Run("parent cancellation still applies", func(t *testing.T) {
		w := New("feed", time.Hour, TaskFunc(func(ctx context.Context, w *Worker) error { return nil }))
		parent, cancelParent := context.WithCancel(context.Background())
		ctx, cancel := w.WithShutdown(parent)
		defer cancel()

		cancelParent()
		<-ctx.Done()
		assert.False(t, w.ShuttingDown())
	})
}
