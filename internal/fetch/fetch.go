// Package fetch runs source fetchers concurrently and forwards what they
// return to the engine. Each source is throttled by its own rate limiter
// built from the source's rate-limit descriptor.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/pkg/logger"
	"github.com/okian/credence/pkg/metrics"
)

// Fetcher pulls the current observations of one source.
type Fetcher interface {
	SourceID() string
	Fetch(ctx context.Context) ([]model.Observation, error)
}

// Sources resolves the registered record of a source.
type Sources interface {
	Source(ctx context.Context, id string) (*model.Source, error)
}

// Sink accepts fetched observations.
type Sink interface {
	Submit(ctx context.Context, obs model.Observation) (string, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, obs model.Observation) (string, error)

// Submit implements Sink.
func (f SinkFunc) Submit(ctx context.Context, obs model.Observation) (string, error) {
	return f(ctx, obs)
}

// SourceReport is the outcome of one fetcher within a run.
type SourceReport struct {
	SourceID  string        `json:"source_id"`
	Fetched   int           `json:"fetched"`
	Submitted int           `json:"submitted"`
	Failed    int           `json:"failed"`
	Skipped   bool          `json:"skipped,omitempty"`
	Waited    time.Duration `json:"waited"`
	Err       error         `json:"-"`
}

// Report summarizes a run.
type Report struct {
	RunID    uuid.UUID      `json:"run_id"`
	Started  time.Time      `json:"started"`
	Finished time.Time      `json:"finished"`
	Sources  []SourceReport `json:"sources"`
}

// Submitted returns the number of observations accepted by the sink.
func (r Report) Submitted() int {
	n := 0
	for _, s := range r.Sources {
		n += s.Submitted
	}
	return n
}

// Runner fans fetchers out, one goroutine per source.
type Runner struct {
	sources     Sources
	sink        Sink
	concurrency int
	logger      logger.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithConcurrency caps how many fetchers run at once. Zero means one
// goroutine per fetcher.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a runner forwarding observations to sink.
func NewRunner(sources Sources, sink Sink, opts ...Option) *Runner {
	r := &Runner{
		sources:  sources,
		sink:     sink,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("fetch")
	}
	return r
}

// Limiter returns the limiter of src, creating it from src.RateLimit on
// first use. Limiters persist across runs.
func (r *Runner) Limiter(src *model.Source) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[src.ID]; ok {
		return l
	}
	l := NewLimiter(src.RateLimit)
	r.limiters[src.ID] = l
	return l
}

// NewLimiter converts a rate-limit descriptor into a limiter that spreads
// requests evenly over the period.
func NewLimiter(rl model.RateLimit) *rate.Limiter {
	if rl.Unlimited() {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(rl.Per/time.Duration(rl.Requests)), 1)
}

// Run executes every fetcher once. Per-source failures are recorded in the
// report; the returned error is non-nil only when ctx ends the run.
func (r *Runner) Run(ctx context.Context, fetchers []Fetcher) (Report, error) {
	report := Report{RunID: uuid.New(), Started: time.Now()}
	results := make([]SourceReport, len(fetchers))

	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, f := range fetchers {
		g.Go(func() error {
			results[i] = r.runOne(ctx, report.RunID, f)
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(results, func(i, j int) bool { return results[i].SourceID < results[j].SourceID })
	report.Sources = results
	report.Finished = time.Now()

	r.logger.Info(ctx, "fetch run finished",
		logger.String("run_id", report.RunID.String()),
		logger.Int("fetchers", len(fetchers)),
		logger.Int("submitted", report.Submitted()),
		logger.Duration("elapsed", report.Finished.Sub(report.Started)),
	)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("fetch run %s: %w", report.RunID, err)
	}
	return report, nil
}

func (r *Runner) runOne(ctx context.Context, runID uuid.UUID, f Fetcher) SourceReport {
	res := SourceReport{SourceID: f.SourceID()}
	log := r.logger.Named(res.SourceID)

	src, err := r.sources.Source(ctx, res.SourceID)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrUnknownSource, err)
		metrics.RecordFetchError(res.SourceID)
		log.Warn(ctx, "fetcher skipped", logger.Error(res.Err))
		return res
	}
	if !src.Active {
		res.Skipped = true
		res.Err = ErrInactive
		return res
	}

	start := time.Now()
	if err := r.Limiter(src).Wait(ctx); err != nil {
		res.Err = fmt.Errorf("throttle %s: %w", src.ID, err)
		return res
	}
	res.Waited = time.Since(start)
	metrics.ObserveThrottleWait(res.Waited)

	batch, err := f.Fetch(ctx)
	if err != nil {
		res.Err = fmt.Errorf("fetch %s: %w", src.ID, err)
		metrics.RecordFetchError(src.ID)
		log.Error(ctx, "fetch failed", logger.String("run_id", runID.String()), logger.Error(err))
		return res
	}
	res.Fetched = len(batch)
	metrics.RecordFetchObservations(src.ID, len(batch))

	var errs []error
	for _, obs := range batch {
		if obs.SourceID == "" {
			obs.SourceID = src.ID
		}
		if _, err := r.sink.Submit(ctx, obs); err != nil {
			res.Failed++
			errs = append(errs, err)
			continue
		}
		res.Submitted++
	}
	res.Err = errors.Join(errs...)
	log.Debug(ctx, "fetcher done",
		logger.String("run_id", runID.String()),
		logger.Int("fetched", res.Fetched),
		logger.Int("submitted", res.Submitted),
		logger.Int("failed", res.Failed),
	)
	return res
}
