// Package queue buffers submitted observations between callers of the async
// ingestion path and the worker pool.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/pkg/metrics"
)

const defaultCapacity = 10000

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds obs without blocking. It fails with ErrFull when the
	// buffer is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, obs model.Observation) error

	// Dequeue returns the channel consumers read from. It is closed once the
	// queue is closed and drained.
	Dequeue(ctx context.Context) <-chan model.Observation

	// Len returns the number of buffered observations.
	Len(ctx context.Context) int

	// Close stops accepting observations. Buffered ones stay readable.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan model.Observation
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a queue holding up to 10000 observations unless
// WithCapacity says otherwise.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan model.Observation, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, obs model.Observation) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return fmt.Errorf("enqueue: %w", err)
	}

	select {
	case q.items <- obs:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.items))
		return nil
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return ErrFull
	}
}

// Dequeue implements Queue. Consumers record the dequeue themselves via
// Dequeued so no relay goroutine sits between the buffer and the workers.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan model.Observation {
	return q.items
}

// Dequeued updates the queue gauges after a consumer took an observation.
func (q *InMemoryQueue) Dequeued() {
	metrics.RecordQueueDequeue()
	metrics.UpdateQueueSize(len(q.items))
}

// Len implements Queue.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.items)
}

// Capacity returns the configured buffer size.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close implements Queue. Closing twice is a no-op.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
