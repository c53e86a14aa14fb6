package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// MinHealthWindow is the smallest heartbeat age still considered healthy.
// Fast workers (sound, display) can legitimately block for a few seconds
// inside a single tick, e.g. while speech is playing.
const MinHealthWindow = 10 * time.Second

// Task is a unit of periodic work driven by a Worker.
//
// Tick returns nil on success, which records a heartbeat. A non-nil error is
// logged by the driver and swallowed; the next tick runs after the interval
// as usual. Long-running ticks may call w.Beat() to refresh the heartbeat and
// should poll w.ShuttingDown() (or ctx) to return promptly on shutdown.
type Task interface {
	Tick(ctx context.Context, w *Worker) error
}

// TaskFunc adapts an ordinary function to the Task interface.
type TaskFunc func(ctx context.Context, w *Worker) error

// Tick calls f(ctx, w).
func (f TaskFunc) Tick(ctx context.Context, w *Worker) error {
	return f(ctx, w)
}

// Worker runs a Task on a fixed interval until shutdown.
// It tracks the time of the last successful tick for external health checks.
// All methods are safe for concurrent use.
type Worker struct {
	name     string
	interval time.Duration
	task     Task
	now      func() time.Time

	started   atomic.Int64 // unix nanos, 0 until Run is called
	heartbeat atomic.Int64 // unix nanos, 0 until the first successful tick
	shutdown  atomic.Bool
	stop      chan struct{}
	stopOnce  sync.Once
}

// New creates a worker named name that runs task every interval.
// A zero interval runs ticks back to back; such tasks pace themselves.
// Negative intervals are treated as zero.
func New(name string, interval time.Duration, task Task) *Worker {
	if interval < 0 {
		interval = 0
	}
	return &Worker{
		name:     name,
		interval: interval,
		task:     task,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Name returns the worker's name.
func (w *Worker) Name() string {
	return w.name
}

// Interval returns the delay between ticks.
func (w *Worker) Interval() time.Duration {
	return w.interval
}

// Run executes ticks until Shutdown is called or ctx is done, whichever
// comes first. The tick in progress always completes; Run then returns
// without sleeping again. Run never returns a tick error.
func (w *Worker) Run(ctx context.Context) error {
	w.started.Store(w.now().UnixNano())
	log.Printf("[DEBUG] Worker %s starting (interval %s)", w.name, w.interval)
	defer log.Printf("[DEBUG] Worker %s exited cleanly", w.name)

	for {
		w.runTick(ctx)

		if w.ShuttingDown() || ctx.Err() != nil {
			return nil
		}

		if w.interval == 0 {
			continue
		}

		timer := time.NewTimer(w.interval)
		select {
		case <-timer.C:
		case <-w.stop:
			timer.Stop()
			return nil
		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}
}

// runTick executes one tick and converts failures (including panics) into log entries.
func (w *Worker) runTick(ctx context.Context) {
	err := w.safeTick(ctx)
	if err != nil {
		log.Printf("[WARN] Worker %s tick failed: %v", w.name, err)
		return
	}
	w.Beat()
}

func (w *Worker) safeTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.task.Tick(ctx, w)
}

// Beat records the current time as the last heartbeat.
func (w *Worker) Beat() {
	w.heartbeat.Store(w.now().UnixNano())
}

// LastHeartbeat returns the time of the last successful tick,
// or the zero time if no tick has succeeded yet.
func (w *Worker) LastHeartbeat() time.Time {
	ns := w.heartbeat.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Shutdown asks the worker to exit after the tick in progress.
// It does not interrupt the tick. Safe to call more than once.
func (w *Worker) Shutdown() {
	w.shutdown.Store(true)
	w.stopOnce.Do(func() { close(w.stop) })
}

// ShuttingDown reports whether Shutdown has been called.
func (w *Worker) ShuttingDown() bool {
	return w.shutdown.Load()
}

// Done returns a channel that is closed when Shutdown is called.
func (w *Worker) Done() <-chan struct{} {
	return w.stop
}

// WithShutdown returns a copy of ctx that is also cancelled by Shutdown.
// Tasks that block between units of work (waiting for the next message)
// use it to wake up promptly; the tick context itself is never cancelled
// by Shutdown.
func (w *Worker) WithShutdown(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-w.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// HealthWindow is the maximum heartbeat age for which the worker is healthy:
// twice the interval, but never less than MinHealthWindow.
func (w *Worker) HealthWindow() time.Duration {
	return max(2*w.interval, MinHealthWindow)
}

// Healthy reports whether the worker has made progress within its health window.
// Before the first heartbeat the start time is used, so a freshly started
// worker is healthy until its window elapses. A worker that was never run is unhealthy.
func (w *Worker) Healthy(now time.Time) bool {
	ref := w.heartbeat.Load()
	if ref == 0 {
		ref = w.started.Load()
	}
	if ref == 0 {
		return false
	}
	return now.Sub(time.Unix(0, ref)) <= w.HealthWindow()
}

// Status is a point-in-time view of a worker, used by the health surface.
type Status struct {
	Name          string        `json:"name"`
	Interval      time.Duration `json:"interval"`
	LastHeartbeat time.Time     `json:"last_heartbeat"`
	Healthy       bool          `json:"healthy"`
}

// Status returns the worker's current status as seen at now.
func (w *Worker) Status(now time.Time) Status {
	return Status{
		Name:          w.name,
		Interval:      w.interval,
		LastHeartbeat: w.LastHeartbeat(),
		Healthy:       w.Healthy(now),
	}
}
