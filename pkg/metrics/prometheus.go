// Package metrics provides Prometheus metrics for the credence engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// latencyBuckets suit microsecond-to-millisecond calculations.
var latencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50} //nolint:gochecknoglobals // fixed bucket layout

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ingestion
	pointsIngested  prometheus.Counter
	pointsRejected  *prometheus.CounterVec
	pointsDuplicate prometheus.Counter
	unknownSource   prometheus.Counter
	storePoints     prometheus.Gauge
	sourcesTotal    prometheus.Gauge

	// Analysis
	contradictionsDetected  prometheus.Counter
	contradictionsAmbiguous prometheus.Counter
	authorityCacheHits      prometheus.Counter
	authorityCacheMisses    prometheus.Counter
	calculationLatency      *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerActiveCount prometheus.Gauge
	workerErrors      prometheus.Counter

	// Fetchers
	fetchObservations *prometheus.CounterVec
	fetchErrors       *prometheus.CounterVec
	fetchThrottleWait prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "credence",
		subsystem:        "engine",
		histogramBuckets: latencyBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.pointsIngested = m.counter("points_ingested_total", "Knowledge points accepted into the store")
	m.pointsRejected = m.counterVec("points_rejected_total", "Observations rejected by the ingestion validator", "reason")
	m.pointsDuplicate = m.counter("points_duplicate_total", "Re-ingested observations that resolved to an existing point")
	m.unknownSource = m.counter("unknown_source_total", "Observations referencing an unregistered source")
	m.storePoints = m.gauge("store_points", "Knowledge points currently held in memory")
	m.sourcesTotal = m.gauge("sources_total", "Registered sources")

	m.contradictionsDetected = m.counter("contradictions_detected_total", "Source pairs reported as contradicting")
	m.contradictionsAmbiguous = m.counter("contradictions_ambiguous_total", "Contradictions too close to call")
	m.authorityCacheHits = m.counter("authority_cache_hits_total", "Authority checks served from cache")
	m.authorityCacheMisses = m.counter("authority_cache_misses_total", "Authority checks recomputed")
	m.calculationLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "calculation_latency_milliseconds",
		Help:        "Latency of engine calculations in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"operation"})

	m.queueSize = m.gauge("queue_size", "Observations waiting in the submission queue")
	m.queueCapacity = m.gauge("queue_capacity", "Submission queue capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Observations enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Observations dequeued")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Failed enqueues", "reason")

	m.workerActiveCount = m.gauge("worker_active_count", "Running ingestion workers")
	m.workerErrors = m.counter("worker_errors_total", "Errors returned while ingesting queued observations")

	m.fetchObservations = m.counterVec("fetch_observations_total", "Observations produced by fetchers", "source")
	m.fetchErrors = m.counterVec("fetch_errors_total", "Fetcher failures", "source")
	m.fetchThrottleWait = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetch_throttle_wait_milliseconds",
		Help:        "Time fetchers spent waiting on their source rate limit",
		Buckets:     prometheus.ExponentialBuckets(1, 4, 8),
		ConstLabels: m.customLabels,
	})

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request latency in milliseconds",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Running goroutines")
}

// Ingestion.

// RecordPointIngested increments the accepted points counter.
func RecordPointIngested() {
	if globalManager.enabled {
		globalManager.pointsIngested.Inc()
	}
}

// RecordPointRejected increments the rejection counter for reason.
func RecordPointRejected(reason string) {
	if globalManager.enabled {
		globalManager.pointsRejected.WithLabelValues(reason).Inc()
	}
}

// RecordPointDuplicate increments the duplicate counter.
func RecordPointDuplicate() {
	if globalManager.enabled {
		globalManager.pointsDuplicate.Inc()
	}
}

// RecordUnknownSource increments the unknown source counter.
func RecordUnknownSource() {
	if globalManager.enabled {
		globalManager.unknownSource.Inc()
	}
}

// UpdateStorePoints sets the store size gauge.
func UpdateStorePoints(n int) {
	globalManager.storePoints.Set(float64(n))
}

// UpdateSourcesTotal sets the registered sources gauge.
func UpdateSourcesTotal(n int) {
	globalManager.sourcesTotal.Set(float64(n))
}

// Analysis.

// RecordContradiction counts a reported contradiction.
func RecordContradiction(ambiguous bool) {
	if !globalManager.enabled {
		return
	}
	globalManager.contradictionsDetected.Inc()
	if ambiguous {
		globalManager.contradictionsAmbiguous.Inc()
	}
}

// RecordAuthorityCache counts an authority cache lookup.
func RecordAuthorityCache(hit bool) {
	if !globalManager.enabled {
		return
	}
	if hit {
		globalManager.authorityCacheHits.Inc()
		return
	}
	globalManager.authorityCacheMisses.Inc()
}

// ObserveCalculation records the latency of an engine operation started at start.
func ObserveCalculation(operation string, start time.Time) {
	if globalManager.enabled {
		ms := float64(time.Since(start).Microseconds()) / 1000
		globalManager.calculationLatency.WithLabelValues(operation).Observe(ms)
	}
}

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts a successful enqueue.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a failed enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// Workers.

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerError counts a worker failure.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Fetchers.

// RecordFetchObservations adds n observations produced for source.
func RecordFetchObservations(source string, n int) {
	globalManager.fetchObservations.WithLabelValues(source).Add(float64(n))
}

// RecordFetchError counts a fetcher failure for source.
func RecordFetchError(source string) {
	globalManager.fetchErrors.WithLabelValues(source).Inc()
}

// ObserveThrottleWait records how long a fetcher waited on its limiter.
func ObserveThrottleWait(d time.Duration) {
	globalManager.fetchThrottleWait.Observe(float64(d.Milliseconds()))
}

// HTTP.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records the latency of an HTTP request.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// System.

// UpdateSystemMemoryUsage sets the allocated bytes gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry holding the global metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// GetRefreshInterval returns how often the global gauges should be refreshed.
func GetRefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// SetEnabled toggles recording of counters on the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}
