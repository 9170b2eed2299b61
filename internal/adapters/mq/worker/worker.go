// Package worker drains the submission queue and hands each observation to
// the ingestion path.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/pkg/logger"
	"github.com/okian/credence/pkg/metrics"
)

// Ingester validates and stores one observation.
type Ingester interface {
	Ingest(ctx context.Context, obs model.Observation) error
}

// IngesterFunc adapts a function to Ingester.
type IngesterFunc func(ctx context.Context, obs model.Observation) error

// Ingest implements Ingester.
func (f IngesterFunc) Ingest(ctx context.Context, obs model.Observation) error {
	return f(ctx, obs)
}

// Queue defines how workers receive observations.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Observation
}

// dequeueNotifier is implemented by queues that track consumption.
type dequeueNotifier interface {
	Dequeued()
}

// Worker reads observations off a queue until it is closed or ctx ends.
type Worker struct {
	queue    Queue
	ingester Ingester
	name     string
	logger   logger.Logger
}

// NewWorker creates a worker.
func NewWorker(q Queue, ing Ingester, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		ingester: ing,
		name:     "worker",
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes observations until the queue is closed and drained or ctx
// is cancelled.
func (w *Worker) Run(ctx context.Context) {
	items := w.queue.Dequeue(ctx)
	notifier, _ := w.queue.(dequeueNotifier)
	for {
		select {
		case <-ctx.Done():
			return
		case obs, ok := <-items:
			if !ok {
				return
			}
			if notifier != nil {
				notifier.Dequeued()
			}
			if err := w.process(ctx, obs); err != nil {
				w.logger.Warn(ctx, "observation not ingested", logger.Error(err))
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, obs model.Observation) error {
	if err := w.ingester.Ingest(ctx, obs); err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("ingest %s from %s: %w", obs.ID(), obs.SourceID, err)
	}
	return nil
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*Worker
	logger  logger.Logger

	mu      sync.Mutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool
}

// NewPool creates a pool of count workers. A count below one uses the
// number of CPUs.
func NewPool(count int, q Queue, ing Ingester, opts ...PoolOption) *Pool {
	if count < 1 {
		count = runtime.NumCPU()
	}
	p := &Pool{workers: make([]*Worker, count)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("worker-pool")
	}
	for i := range p.workers {
		p.workers[i] = NewWorker(q, ing, WithName("worker-"+strconv.Itoa(i)), WithLogger(p.logger))
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start launches every worker. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(runCtx)
		}(w)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown waits for the workers to drain a closed queue. If ctx ends first
// the workers are cancelled and the context error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	started := p.started
	p.mu.Unlock()
	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out; cancelling workers")
		err = fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
	cancel()
	<-done
	metrics.UpdateWorkerActiveCount(0)
	return err
}
