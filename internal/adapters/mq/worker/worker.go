// Package worker runs queued recompute requests one at a time.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/vists/internal/domain/model"
	"github.com/okian/vists/pkg/logger"
	"github.com/okian/vists/pkg/metrics"
)

// ErrShutdown is reported for requests still queued when the worker stops.
var ErrShutdown = errors.New("worker shut down before the run started")

// Request abstracts what the worker reads off the queue.
type Request = model.RunRequest

// Result is what a successful recompute publishes.
type Result struct {
	Games   int
	Ratings map[string]float64
	Counts  map[string]int
}

// Recomputer performs one full recompute.
type Recomputer interface {
	Recompute(ctx context.Context, r Request) (Result, error)
}

// RecomputerFunc adapts a function to Recomputer.
type RecomputerFunc func(ctx context.Context, r Request) (Result, error)

// Recompute calls f.
func (f RecomputerFunc) Recompute(ctx context.Context, r Request) (Result, error) { //nolint:gocritic // hugeParam
	return f(ctx, r)
}

// Publisher receives the final ratings of a successful run.
type Publisher interface {
	Replace(ctx context.Context, ratings map[string]float64, games map[string]int) error
}

// Tracker is notified as runs move through the worker.
type Tracker interface {
	Started(ctx context.Context, id string)
	Finished(ctx context.Context, id string, res Result, err error)
}

// Queue defines how the worker receives requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Request
}

// Worker processes requests in arrival order.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown waits for the current run to finish. Queued requests are
	// not run.
	Shutdown(ctx context.Context) error
}

type noopTracker struct{}

func (noopTracker) Started(context.Context, string)                {}
func (noopTracker) Finished(context.Context, string, Result, error) {}

// InMemoryWorker is the single consumer of the run queue. Having exactly one
// consumer is what keeps runs from overlapping.
type InMemoryWorker struct {
	queue      Queue
	recomputer Recomputer
	publisher  Publisher
	tracker    Tracker
	name       string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(queue Queue, recomputer Recomputer, publisher Publisher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      queue,
		recomputer: recomputer,
		publisher:  publisher,
		tracker:    noopTracker{},
		name:       "worker",
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. Requests still queued at shutdown are
// reported to the tracker as failed with ErrShutdown.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	w.logger.Info(ctx, "worker started")
	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-w.shutdown:
			w.failPending(ctx, requests)
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			w.failPending(ctx, requests)
			return
		case r, ok := <-requests:
			if !ok {
				w.logger.Info(ctx, "queue closed, worker stopping")
				return
			}
			if err := w.process(ctx, r); err != nil {
				w.logger.Error(ctx, "run failed", logger.String("run_id", r.ID), logger.Error(err))
			}
		}
	}
}

// failPending drains requests without running them. A closed queue is
// drained until its channel closes; otherwise only what is ready is taken.
func (w *InMemoryWorker) failPending(ctx context.Context, requests <-chan Request) {
	closed := false
	if c, ok := w.queue.(interface{ IsClosed() bool }); ok {
		closed = c.IsClosed()
	}

	n := 0
	defer func() {
		if n > 0 {
			w.logger.Warn(ctx, "queued runs dropped at shutdown", logger.Int("runs", n))
		}
	}()
	for {
		var (
			r  Request
			ok bool
		)
		if closed {
			select {
			case r, ok = <-requests:
			case <-ctx.Done():
				return
			}
		} else {
			select {
			case r, ok = <-requests:
			default:
				return
			}
		}
		if !ok {
			return
		}
		n++
		metrics.RecordErrorByComponent("worker", "shutdown")
		w.tracker.Finished(ctx, r.ID, Result{}, ErrShutdown)
	}
}

// Shutdown signals the loop to stop and waits for the current run.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, r Request) error { //nolint:gocritic // hugeParam
	start := time.Now()
	w.tracker.Started(ctx, r.ID)

	res, err := w.recomputer.Recompute(ctx, r)
	if err == nil {
		if perr := w.publisher.Replace(ctx, res.Ratings, res.Counts); perr != nil {
			metrics.RecordErrorByComponent("worker", "publish_error")
			err = fmt.Errorf("publish standings: %w", perr)
		}
	}
	w.tracker.Finished(ctx, r.ID, res, err)
	if err != nil {
		return err
	}

	w.logger.Info(ctx, "run published",
		logger.String("run_id", r.ID),
		logger.Int("games", res.Games),
		logger.Int("players", len(res.Ratings)),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}
