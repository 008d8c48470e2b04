package jobs

import (
	"context"
	"sync"

	"github.com/afetops/coordcore/core/jobqueue"
)

// MemoryQueue is a channel-backed job queue for tests and single-process
// deployments.
type MemoryQueue struct {
	ch        chan jobqueue.Job
	closeOnce sync.Once
}

func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 64
	}
	return &MemoryQueue{ch: make(chan jobqueue.Job, buffer)}
}

func (q *MemoryQueue) EnqueueAggregation(ctx context.Context, job jobqueue.Job) error {
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run delivers jobs to the handler until the context is canceled or the
// queue is closed. Handler errors are the worker's concern.
func (q *MemoryQueue) Run(ctx context.Context, handle func(context.Context, jobqueue.Job) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-q.ch:
			if !ok {
				return nil
			}
			_ = handle(ctx, job)
		}
	}
}

func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.ch) })
	return nil
}
