// Package metrics provides Prometheus metrics for the Entalk deck service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values used by the engine.
const (
	StageCrossLocation = "cross_location"
	StageCoverage      = "coverage"
	StageNovelty       = "novelty"
	StageShortfall     = "shortfall"

	OutcomeSuccess = "success"
	OutcomeError   = "error"

	SourceAuthored  = "authored"
	SourceGenerated = "generated"
)

var deckSizeBuckets = []float64{0, 5, 10, 15, 20, 25, 30}

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Deck generation
	decksGenerated     prometheus.Counter
	deckLatency        prometheus.Histogram
	deckSize           prometheus.Histogram
	stagePicks         *prometheus.CounterVec
	lockWait           prometheus.Histogram
	accessCodeFailures prometheus.Counter

	// Generator
	generatorRequests  *prometheus.CounterVec
	generatorLatency   *prometheus.HistogramVec
	generatorFallbacks prometheus.Counter

	// Questions and feedback
	questionsCreated  *prometheus.CounterVec
	feedbackRecorded  *prometheus.CounterVec
	feedbackReplays   prometheus.Counter
	questionsRescored prometheus.Counter
	questionsTotal    prometheus.Gauge
	decksTotal        prometheus.Gauge
	repositoryErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "entalk",
		subsystem:        "decks",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.decksGenerated = auto.NewCounter(m.counterOpts("generated_total",
		"Total number of decks generated and persisted"))
	m.deckLatency = auto.NewHistogram(m.histogramOpts("generation_duration_milliseconds",
		"Deck generation latency in milliseconds, lock wait excluded", m.histogramBuckets))
	m.deckSize = auto.NewHistogram(m.histogramOpts("size",
		"Number of questions per generated deck", deckSizeBuckets))
	m.stagePicks = auto.NewCounterVec(m.counterOpts("stage_picks_total",
		"Questions contributed to decks by selection stage"), []string{"stage"})
	m.lockWait = auto.NewHistogram(m.histogramOpts("lock_wait_milliseconds",
		"Time spent waiting for the per-location lock", m.histogramBuckets))
	m.accessCodeFailures = auto.NewCounter(m.counterOpts("access_code_failures_total",
		"Access code issuance failures"))

	m.generatorRequests = auto.NewCounterVec(m.counterOpts("generator_requests_total",
		"Question generator calls by backend and outcome"), []string{"backend", "outcome"})
	m.generatorLatency = auto.NewHistogramVec(m.histogramOpts("generator_latency_milliseconds",
		"Question generator latency in milliseconds", m.histogramBuckets), []string{"backend"})
	m.generatorFallbacks = auto.NewCounter(m.counterOpts("generator_fallbacks_total",
		"Shortfalls served by the template fallback after a generator failure"))

	m.questionsCreated = auto.NewCounterVec(m.counterOpts("questions_created_total",
		"Questions persisted by source"), []string{"source"})
	m.feedbackRecorded = auto.NewCounterVec(m.counterOpts("feedback_total",
		"Feedback events recorded by polarity"), []string{"polarity"})
	m.feedbackReplays = auto.NewCounter(m.counterOpts("feedback_duplicates_total",
		"Feedback submissions dropped because their request id was already seen"))
	m.questionsRescored = auto.NewCounter(m.counterOpts("questions_rescored_total",
		"Score recomputations written back to questions"))
	m.questionsTotal = auto.NewGauge(m.gaugeOpts("questions",
		"Questions held by the repository"))
	m.decksTotal = auto.NewGauge(m.gaugeOpts("decks",
		"Decks held by the repository"))
	m.repositoryErrors = auto.NewCounterVec(m.counterOpts("repository_errors_total",
		"Repository failures by operation"), []string{"op"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes",
		"Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count",
		"Number of goroutines"))
}

// RecordDeckGenerated records one persisted deck with its size and latency.
func RecordDeckGenerated(size int, latencyMs float64) {
	globalManager.decksGenerated.Inc()
	globalManager.deckSize.Observe(float64(size))
	globalManager.deckLatency.Observe(latencyMs)
}

// RecordStagePicks adds n picks to the given selection stage.
func RecordStagePicks(stage string, n int) {
	globalManager.stagePicks.WithLabelValues(stage).Add(float64(n))
}

// RecordLockWait records how long a caller waited for a location lock.
func RecordLockWait(waitMs float64) {
	globalManager.lockWait.Observe(waitMs)
}

// RecordAccessCodeFailure increments the access code failure counter.
func RecordAccessCodeFailure() {
	globalManager.accessCodeFailures.Inc()
}

// RecordGeneratorRequest records one generator call.
func RecordGeneratorRequest(backend, outcome string, latencyMs float64) {
	globalManager.generatorRequests.WithLabelValues(backend, outcome).Inc()
	globalManager.generatorLatency.WithLabelValues(backend).Observe(latencyMs)
}

// RecordGeneratorFallback increments the fallback counter.
func RecordGeneratorFallback() {
	globalManager.generatorFallbacks.Inc()
}

// RecordQuestionsCreated adds n persisted questions for source.
func RecordQuestionsCreated(source string, n int) {
	globalManager.questionsCreated.WithLabelValues(source).Add(float64(n))
}

// RecordFeedback counts one feedback event.
func RecordFeedback(polarity string) {
	globalManager.feedbackRecorded.WithLabelValues(polarity).Inc()
}

// RecordFeedbackDuplicate counts a replayed feedback submission.
func RecordFeedbackDuplicate() {
	globalManager.feedbackReplays.Inc()
}

// RecordRescored adds n rescored questions.
func RecordRescored(n int) {
	globalManager.questionsRescored.Add(float64(n))
}

// UpdateQuestionTotal sets the repository question count.
func UpdateQuestionTotal(n int) {
	globalManager.questionsTotal.Set(float64(n))
}

// UpdateDeckTotal sets the repository deck count.
func UpdateDeckTotal(n int) {
	globalManager.decksTotal.Set(float64(n))
}

// RecordRepositoryError counts a failed repository operation.
func RecordRepositoryError(op string) {
	globalManager.repositoryErrors.WithLabelValues(op).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
