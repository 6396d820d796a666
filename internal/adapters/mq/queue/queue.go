// Package queue funnels leaderboard writes through a bounded channel so a
// single consumer applies them one at a time.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/scool/internal/domain/types"
	"github.com/okian/scool/pkg/metrics"
)

const defaultCapacity = 1024

// Result is what the consumer sends back for a Job.
type Result struct {
	Entry types.Entry
	Err   error
}

// Job is one pending write. Enroll jobs ignore Score.
type Job struct {
	Ctx      context.Context //nolint:containedctx // carried to the consumer so the caller's deadline bounds the write
	Username string
	Name     string
	Score    int64
	Enroll   bool
	Enqueued time.Time

	reply chan Result
}

// NewJob builds a job whose result can be read from Done.
func NewJob(ctx context.Context, username, name string, score int64, enroll bool) *Job {
	return &Job{
		Ctx:      ctx,
		Username: username,
		Name:     name,
		Score:    score,
		Enroll:   enroll,
		Enqueued: time.Now(),
		reply:    make(chan Result, 1),
	}
}

// Reply delivers the result. It never blocks.
func (j *Job) Reply(r Result) {
	select {
	case j.reply <- r:
	default:
	}
}

// Done yields the result once the consumer has handled the job.
func (j *Job) Done() <-chan Result { return j.reply }

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue returns false if the queue is full or closed.
	Enqueue(ctx context.Context, j *Job) bool
	Dequeue(ctx context.Context) <-chan *Job
	Len(ctx context.Context) int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	jobs     chan *Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan *Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, j *Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.jobs <- j:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.jobs))
		return true
	case <-ctx.Done():
		metrics.RecordQueueRejected()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueRejected()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns the job channel. It is closed by Close once drained.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan *Job {
	return q.jobs
}

func (q *InMemoryQueue) Len(ctx context.Context) int {
	n := len(q.jobs)
	metrics.UpdateQueueSize(n)
	return n
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
