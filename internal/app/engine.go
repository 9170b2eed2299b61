// Package service wires the evidence engine: the source registry, the
// ingestion validator, the evidence store and the analysis components,
// plus the asynchronous submission path used by fetchers.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/credence/internal/adapters/mq/queue"
	"github.com/okian/credence/internal/adapters/mq/worker"
	"github.com/okian/credence/internal/adapters/repository"
	"github.com/okian/credence/internal/domain/aggregation"
	"github.com/okian/credence/internal/domain/contradiction"
	"github.com/okian/credence/internal/domain/credibility"
	"github.com/okian/credence/internal/domain/dedupe"
	"github.com/okian/credence/internal/domain/freshness"
	"github.com/okian/credence/internal/domain/ingest"
	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/internal/domain/registry"
	"github.com/okian/credence/pkg/logger"
	"github.com/okian/credence/pkg/metrics"
)

const (
	defaultQueueSize  = 10000
	defaultDedupeSize = 50000
)

// Engine is the in-process evidence engine. Construct one per process (or
// per test) with New.
type Engine struct {
	mu      sync.RWMutex
	started bool
	stopped bool

	registry   *registry.Registry
	store      repository.Store
	validator  *ingest.Validator
	calculator *credibility.Calculator
	aggregator *aggregation.Aggregator
	detector   *contradiction.Detector

	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool

	catalog        []model.Source
	catalogSet     bool
	extra          []model.Source
	workerCount    int
	queueSize      int
	dedupeSize     int
	minCredibility float64
	minConfidence  float64
	authorityTTL   time.Duration
	issuers        []string
	now            func() time.Time

	logger logger.Logger
}

// Stats is a point-in-time snapshot of the engine.
type Stats struct {
	Started       bool     `json:"started"`
	Points        int      `json:"points"`
	Sources       int      `json:"sources"`
	Categories    []string `json:"categories"`
	QueueLength   int      `json:"queue_length"`
	QueueCapacity int      `json:"queue_capacity"`
	Workers       int      `json:"workers"`
	Tracked       int      `json:"tracked_submissions"`
}

// New builds an engine and registers its initial catalog. Without
// WithCatalog the built-in catalog is used.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	e := &Engine{
		workerCount:    runtime.NumCPU(),
		queueSize:      defaultQueueSize,
		dedupeSize:     defaultDedupeSize,
		minCredibility: ingest.DefaultMinCredibility,
		minConfidence:  ingest.DefaultMinConfidence,
		authorityTTL:   credibility.DefaultAuthorityTTL,
		issuers:        credibility.DefaultIssuers(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("engine")
	}
	if !e.catalogSet {
		e.catalog = registry.DefaultCatalog()
	}

	e.registry = registry.New(registry.WithLogger(e.logger.Named("registry")))
	if e.store == nil {
		e.store = repository.NewMemoryStore(repository.WithLogger(e.logger.Named("store")))
	}
	e.validator = ingest.NewValidator(e.registry, e.store,
		ingest.WithMinCredibility(e.minCredibility),
		ingest.WithMinConfidence(e.minConfidence),
		ingest.WithClock(e.now),
		ingest.WithLogger(e.logger.Named("ingest")),
	)
	verifier := credibility.NewAuthorityVerifier(
		credibility.WithIssuers(e.issuers),
		credibility.WithTTL(e.authorityTTL),
		credibility.WithVerifierClock(e.now),
		credibility.WithVerifierLogger(e.logger.Named("authority")),
	)
	e.calculator = credibility.NewCalculator(
		credibility.WithVerifier(verifier),
		credibility.WithClock(e.now),
		credibility.WithLogger(e.logger.Named("credibility")),
	)
	e.aggregator = aggregation.New(aggregation.WithClock(e.now), aggregation.WithLogger(e.logger.Named("aggregation")))
	e.detector = contradiction.New(contradiction.WithClock(e.now), contradiction.WithLogger(e.logger.Named("contradiction")))

	e.deduper = dedupe.NewMemoryDeduper(dedupe.WithMaxSize(e.dedupeSize))
	e.queue = queue.NewInMemoryQueue(queue.WithCapacity(e.queueSize))
	e.pool = worker.NewPool(e.workerCount, e.queue, worker.IngesterFunc(e.ingestQueued),
		worker.WithPoolLogger(e.logger.Named("worker-pool")))

	if err := e.registry.Load(ctx, e.catalog); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if err := e.registry.Load(ctx, e.extra); err != nil {
		return nil, fmt.Errorf("load extra sources: %w", err)
	}
	e.logger.Info(ctx, "engine ready", logger.Int("sources", e.registry.Len()))
	return e, nil
}

// Start launches the workers draining Submit. Synchronous operations work
// without it.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrStopped
	}
	if e.started {
		return nil
	}
	e.pool.Start(ctx)
	e.started = true
	e.logger.Info(ctx, "engine started",
		logger.Int("workers", e.pool.Size()),
		logger.Int("queue_size", e.queue.Capacity()),
		logger.Int("dedupe_size", e.dedupeSize),
	)
	return nil
}

// Stop closes the submission queue and waits for the workers to drain it
// until ctx ends. Stored points remain queryable.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	e.started = false
	e.mu.Unlock()

	e.logger.Info(ctx, "stopping engine")
	if err := e.queue.Close(); err != nil {
		e.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	if err := e.pool.Shutdown(ctx); err != nil {
		return fmt.Errorf("stop engine: %w", err)
	}
	e.logger.Info(ctx, "engine stopped")
	return nil
}

// RegisterSource adds or overwrites a source. A cached authority verdict
// for the id is dropped so the new record is verified afresh.
func (e *Engine) RegisterSource(ctx context.Context, src model.Source) (*model.Source, error) {
	stored, err := e.registry.Register(ctx, src)
	if err != nil {
		return nil, err
	}
	e.calculator.Verifier().Forget(ctx, stored.ID)
	return stored, nil
}

// Source returns the registered source with id.
func (e *Engine) Source(ctx context.Context, id string) (*model.Source, error) {
	return e.registry.Lookup(ctx, id)
}

// Sources lists every registered source ordered by id.
func (e *Engine) Sources(ctx context.Context) []*model.Source {
	return e.registry.List(ctx)
}

// IngestPoint validates and stores one observation synchronously. A
// rejection is reported in the Outcome; the error is reserved for unknown
// sources and malformed observations.
func (e *Engine) IngestPoint(ctx context.Context, obs model.Observation) (ingest.Outcome, error) {
	return e.validator.Ingest(ctx, obs)
}

// Submit queues obs for asynchronous ingestion and returns its point id.
// Ids already submitted are acknowledged without queueing again. A full or
// closed queue is returned as an error and the id is forgotten so the
// caller may retry.
func (e *Engine) Submit(ctx context.Context, obs model.Observation) (string, error) {
	e.mu.RLock()
	started, stopped := e.started, e.stopped
	e.mu.RUnlock()
	switch {
	case stopped:
		return "", ErrStopped
	case !started:
		return "", ErrNotStarted
	}

	id := obs.ID()
	if e.deduper.SeenAndRecord(ctx, id) {
		metrics.RecordPointDuplicate()
		e.logger.Debug(ctx, "duplicate submission skipped", logger.String("point_id", id))
		return id, nil
	}
	if err := e.queue.Enqueue(ctx, obs); err != nil {
		e.deduper.Unrecord(ctx, id)
		return "", fmt.Errorf("submit %s: %w", id, err)
	}
	return id, nil
}

// ingestQueued is the worker side of Submit. Failed and rejected
// observations are forgotten by the deduper so they can be resubmitted.
func (e *Engine) ingestQueued(ctx context.Context, obs model.Observation) error {
	out, err := e.validator.Ingest(ctx, obs)
	if err != nil {
		e.deduper.Unrecord(ctx, obs.ID())
		return err
	}
	if !out.Accepted {
		e.deduper.Unrecord(ctx, obs.ID())
	}
	return nil
}

// Points returns the stored points of category in insertion order without
// touching their usage counters.
func (e *Engine) Points(ctx context.Context, category string) ([]*model.KnowledgePoint, error) {
	return e.store.ByCategory(ctx, category)
}

// QueryByCategory returns views of every point of category whose confidence
// is at least minConfidence. Each returned point has its usage incremented.
func (e *Engine) QueryByCategory(ctx context.Context, category string, minConfidence float64) ([]model.PointView, error) {
	points, err := e.store.ByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", category, err)
	}
	now := e.now()
	views := make([]model.PointView, 0, len(points))
	for _, p := range points {
		if p.Confidence < minConfidence {
			continue
		}
		usage := p.Touch()
		views = append(views, model.PointView{
			ID:                p.ID,
			Content:           p.Content,
			SourceID:          p.Source.ID,
			SourceName:        p.Source.Name,
			SourceOrg:         p.Source.Organization,
			SourceCredibility: p.Source.CredibilityScore,
			Confidence:        p.Confidence,
			Freshness:         string(freshness.At(p.Timestamp, now)),
			Value:             p.Value,
			Usage:             usage,
		})
	}
	return views, nil
}

// WeightedAverage averages field over the points of category. An empty
// category or unknown field yields (0, 0).
func (e *Engine) WeightedAverage(ctx context.Context, category string, field aggregation.Field) (float64, float64, error) {
	points, err := e.store.ByCategory(ctx, category)
	if err != nil {
		return 0, 0, fmt.Errorf("weighted average %q: %w", category, err)
	}
	v, c := e.aggregator.WeightedAverage(ctx, points, field)
	return v, c, nil
}

// DetectContradictions compares the latest value of every source that
// reported on category.
func (e *Engine) DetectContradictions(ctx context.Context, category string) ([]model.Contradiction, error) {
	points, err := e.store.ByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("detect contradictions %q: %w", category, err)
	}
	return e.detector.Detect(ctx, category, points), nil
}

// Resolve decides between two registered sources.
func (e *Engine) Resolve(ctx context.Context, sourceA, sourceB string) (contradiction.Resolution, error) {
	a, err := e.registry.Lookup(ctx, sourceA)
	if err != nil {
		return contradiction.Resolution{}, err
	}
	b, err := e.registry.Lookup(ctx, sourceB)
	if err != nil {
		return contradiction.Resolution{}, err
	}
	return e.detector.Resolve(a, b), nil
}

// CalculateCredibility scores a registered source under the declared
// methodology. sampleSize is nil when unknown.
func (e *Engine) CalculateCredibility(ctx context.Context, sourceID string, methods model.MethodologySet, sampleSize *int) (model.CredibilityMetrics, error) {
	src, err := e.registry.Lookup(ctx, sourceID)
	if err != nil {
		return model.CredibilityMetrics{}, fmt.Errorf("calculate credibility: %w", err)
	}
	return e.calculator.Calculate(ctx, src, methods, sampleSize), nil
}

// MetricConfidence summarizes points for metric. Contradictions are
// detected over the same points.
func (e *Engine) MetricConfidence(ctx context.Context, metric string, points []*model.KnowledgePoint) model.MetricConfidence {
	found := e.detector.Detect(ctx, metric, points)
	return e.aggregator.MetricConfidence(ctx, metric, points, len(found))
}

// CategoryConfidence is MetricConfidence over the stored points of
// category.
func (e *Engine) CategoryConfidence(ctx context.Context, category string) (model.MetricConfidence, error) {
	points, err := e.store.ByCategory(ctx, category)
	if err != nil {
		return model.MetricConfidence{}, fmt.Errorf("category confidence %q: %w", category, err)
	}
	return e.MetricConfidence(ctx, category, points), nil
}

// Stats returns a snapshot of the engine.
func (e *Engine) Stats(ctx context.Context) Stats {
	e.mu.RLock()
	started := e.started
	e.mu.RUnlock()

	return Stats{
		Started:       started,
		Points:        e.store.Len(ctx),
		Sources:       e.registry.Len(),
		Categories:    e.store.Categories(ctx),
		QueueLength:   e.queue.Len(ctx),
		QueueCapacity: e.queue.Capacity(),
		Workers:       e.pool.Size(),
		Tracked:       e.deduper.Size(),
	}
}
