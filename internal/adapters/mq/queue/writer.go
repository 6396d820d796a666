package queue

import (
	"context"
	"fmt"

	"github.com/okian/scool/internal/domain/types"
)

// Writer enqueues a job and waits for the consumer's result. It satisfies
// ranking.Writer.
type Writer struct {
	q Queue
}

// NewWriter wraps q.
func NewWriter(q Queue) *Writer { return &Writer{q: q} }

func (w *Writer) Submit(ctx context.Context, username, name string, score int64) (types.Entry, error) {
	return w.do(ctx, NewJob(ctx, username, name, score, false))
}

func (w *Writer) Enroll(ctx context.Context, username, name string) (types.Entry, error) {
	return w.do(ctx, NewJob(ctx, username, name, 0, true))
}

func (w *Writer) do(ctx context.Context, j *Job) (types.Entry, error) {
	if !w.q.Enqueue(ctx, j) {
		if err := ctx.Err(); err != nil {
			return types.Entry{}, fmt.Errorf("enqueue %q: %w", j.Username, err)
		}
		if w.q.IsClosed() {
			return types.Entry{}, ErrClosed
		}
		return types.Entry{}, ErrFull
	}
	select {
	case r, ok := <-j.Done():
		if !ok {
			return types.Entry{}, ErrNoReply
		}
		return r.Entry, r.Err
	case <-ctx.Done():
		return types.Entry{}, fmt.Errorf("await %q: %w", j.Username, ctx.Err())
	}
}
