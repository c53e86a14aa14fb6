package worker

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

// Group runs a fixed set of workers concurrently and waits for all of them.
type Group struct {
	workers []*Worker
}

// NewGroup creates a group from the given workers.
func NewGroup(workers ...*Worker) *Group {
	return &Group{workers: workers}
}

// Add appends a worker. It must be called before Run.
func (g *Group) Add(w *Worker) {
	g.workers = append(g.workers, w)
}

// Workers returns the workers in the order they were added.
func (g *Group) Workers() []*Worker {
	out := make([]*Worker, len(g.workers))
	copy(out, g.workers)
	return out
}

// Run starts every worker on its own goroutine and blocks until all have exited.
// Workers exit when ctx is done or Shutdown is called.
func (g *Group) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	for _, w := range g.workers {
		w := w // per-iteration copy; go.mod targets go 1.21 (pre-1.22 loopvar semantics)
		eg.Go(func() error {
			return w.Run(ctx)
		})
	}

	log.Printf("[INFO] Started %d workers", len(g.workers))
	err := eg.Wait()
	log.Printf("[INFO] All workers exited")
	return err
}

// Shutdown flags every worker to exit after its current tick.
func (g *Group) Shutdown() {
	for _, w := range g.workers {
		w.Shutdown()
	}
}

// Statuses returns the status of every worker as seen at now.
func (g *Group) Statuses(now time.Time) []Status {
	statuses := make([]Status, 0, len(g.workers))
	for _, w := range g.workers {
		statuses = append(statuses, w.Status(now))
	}
	return statuses
}

// Healthy reports whether every worker in the group is healthy at now.
func (g *Group) Healthy(now time.Time) bool {
	for _, w := range g.workers {
		if !w.Healthy(now) {
			return false
		}
	}
	return true
}
