// Package worker drains the write queue and applies each job to the store.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/scool/internal/adapters/mq/queue"
	"github.com/okian/scool/internal/domain/types"
	"github.com/okian/scool/pkg/logger"
	"github.com/okian/scool/pkg/metrics"
)

// Applier performs the actual write, normally the repository store.
type Applier interface {
	Submit(ctx context.Context, username, name string, score int64) (types.Entry, error)
	Enroll(ctx context.Context, username, name string) (types.Entry, error)
}

// Queue defines how the worker receives jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan *queue.Job
}

// Worker applies queued writes until stopped.
type Worker interface {
	// Run blocks until ctx is cancelled, Shutdown is called or the queue closes.
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker is the single consumer of the write queue.
type InMemoryWorker struct {
	queue   Queue
	applier Applier
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading q and writing through a.
func NewInMemoryWorker(q Queue, a Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		applier:  a,
		name:     "writer",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("writer"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		// Stop signals win over buffered jobs.
		select {
		case <-ctx.Done():
			w.drain(jobs, ctx.Err())
			return
		case <-w.shutdown:
			w.drain(jobs, queue.ErrClosed)
			return
		default:
		}

		select {
		case <-ctx.Done():
			w.drain(jobs, ctx.Err())
			return
		case <-w.shutdown:
			w.drain(jobs, queue.ErrClosed)
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(j)
		}
	}
}

// drain fails whatever is still buffered so no caller waits forever.
func (w *InMemoryWorker) drain(jobs <-chan *queue.Job, cause error) {
	for {
		select {
		case j, ok := <-jobs:
			if !ok {
				return
			}
			j.Reply(queue.Result{Err: fmt.Errorf("writer stopped: %w", cause)})
		default:
			return
		}
	}
}

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

func (w *InMemoryWorker) process(j *queue.Job) {
	start := time.Now()
	defer func() {
		metrics.RecordWriterLatency(float64(time.Since(start).Milliseconds()))
	}()

	ctx := j.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordErrorByComponent("writer", "expired")
		j.Reply(queue.Result{Err: fmt.Errorf("job for %q expired after %s: %w", j.Username, time.Since(j.Enqueued), err)})
		return
	}

	var (
		entry types.Entry
		err   error
	)
	if j.Enroll {
		entry, err = w.applier.Enroll(ctx, j.Username, j.Name)
	} else {
		entry, err = w.applier.Submit(ctx, j.Username, j.Name, j.Score)
	}
	if err != nil {
		metrics.RecordErrorByComponent("writer", "apply_error")
		w.logger.Debug(ctx, "write failed",
			logger.String("writer", w.name),
			logger.String("username", j.Username),
			logger.Error(err),
		)
	}
	metrics.RecordWriterProcessed()
	j.Reply(queue.Result{Entry: entry, Err: err})
}
