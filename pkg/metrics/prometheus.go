// Package metrics provides Prometheus metrics for the SCool leaderboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes used as the "outcome" label.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// Manager manages all Prometheus metrics for the SCool service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ranking
	scoreSubmissions *prometheus.CounterVec
	submitLatency    prometheus.Histogram
	recomputeLatency prometheus.Histogram
	participants     prometheus.Gauge
	storeUp          prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	// Repository
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Write queue and writer
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueEnqueued   prometheus.Counter
	queueRejected   prometheus.Counter
	writerProcessed prometheus.Counter
	writerLatency   prometheus.Histogram

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "scool",
		subsystem:        "leaderboard",
		histogramBuckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.scoreSubmissions = m.counterVec("score_submissions_total", "Score submissions by outcome", "outcome")
	m.submitLatency = m.histogram("submit_latency_milliseconds", "End-to-end submitScore latency in milliseconds")
	m.recomputeLatency = m.histogram("rank_recompute_latency_milliseconds", "Latency of the rank recompute pass in milliseconds")
	m.participants = m.gauge("participants", "Number of entries on the leaderboard")
	m.storeUp = m.gauge("store_up", "1 when the backing store answers pings")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.rateLimited = m.counterVec("rate_limited_total", "Requests rejected by the rate limiter", "endpoint")

	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds", "Repository write latency in milliseconds")
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Repository read latency in milliseconds")

	m.queueSize = m.gauge("write_queue_size", "Jobs waiting in the write queue")
	m.queueCapacity = m.gauge("write_queue_capacity", "Capacity of the write queue")
	m.queueEnqueued = m.counter("write_queue_enqueued_total", "Jobs accepted by the write queue")
	m.queueRejected = m.counter("write_queue_rejected_total", "Jobs rejected by the write queue")
	m.writerProcessed = m.counter("writer_processed_total", "Jobs applied by the single writer")
	m.writerLatency = m.histogram("writer_latency_milliseconds", "Time the writer spends on one job in milliseconds")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint, method and type", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of failed operations in milliseconds", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds")
}

// GetRegistry returns the registry the global manager writes to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Manager methods back the package-level helpers and let tests use private registries.

func (m *Manager) RecordScoreSubmission(outcome string) {
	m.scoreSubmissions.WithLabelValues(outcome).Inc()
}
func (m *Manager) RecordSubmitLatency(ms float64)    { m.submitLatency.Observe(ms) }
func (m *Manager) RecordRecomputeLatency(ms float64) { m.recomputeLatency.Observe(ms) }
func (m *Manager) UpdateParticipants(n int)          { m.participants.Set(float64(n)) }

func (m *Manager) UpdateStoreUp(up bool) {
	if up {
		m.storeUp.Set(1)
		return
	}
	m.storeUp.Set(0)
}

func (m *Manager) RecordHTTPRequest(endpoint, method, status string) {
	m.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func (m *Manager) RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	m.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}

func (m *Manager) RecordRateLimited(endpoint string) { m.rateLimited.WithLabelValues(endpoint).Inc() }

func (m *Manager) RecordRepositoryUpdateLatency(ms float64) { m.repositoryUpdateLatency.Observe(ms) }
func (m *Manager) RecordRepositoryQueryLatency(ms float64)  { m.repositoryQueryLatency.Observe(ms) }

func (m *Manager) UpdateQueueSize(n int)     { m.queueSize.Set(float64(n)) }
func (m *Manager) UpdateQueueCapacity(n int) { m.queueCapacity.Set(float64(n)) }
func (m *Manager) RecordQueueEnqueue()       { m.queueEnqueued.Inc() }
func (m *Manager) RecordQueueRejected()      { m.queueRejected.Inc() }
func (m *Manager) RecordWriterProcessed()    { m.writerProcessed.Inc() }
func (m *Manager) RecordWriterLatency(ms float64) {
	m.writerLatency.Observe(ms)
}

func (m *Manager) RecordErrorByComponent(component, errorType string) {
	m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

func (m *Manager) RecordErrorByType(errorType, severity string) {
	m.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

func (m *Manager) RecordErrorLatency(component, errorType string, ms float64) {
	m.errorLatency.WithLabelValues(component, errorType).Observe(ms)
}

func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) { m.systemMemoryUsage.Set(float64(bytes)) }
func (m *Manager) UpdateSystemGoroutineCount(n int)     { m.systemGoroutineCount.Set(float64(n)) }
func (m *Manager) RecordSystemGCPauseTime(ms float64)   { m.systemGCPauseTime.Observe(ms) }

// Package-level helpers on the global manager.

func RecordScoreSubmission(outcome string) { globalManager.RecordScoreSubmission(outcome) }
func RecordSubmitLatency(ms float64)       { globalManager.RecordSubmitLatency(ms) }
func RecordRecomputeLatency(ms float64)    { globalManager.RecordRecomputeLatency(ms) }
func UpdateParticipants(n int)             { globalManager.UpdateParticipants(n) }
func UpdateStoreUp(up bool)                { globalManager.UpdateStoreUp(up) }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.RecordHTTPRequest(endpoint, method, status)
}

func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.RecordHTTPRequestDuration(endpoint, method, status, ms)
}

func RecordRateLimited(endpoint string) { globalManager.RecordRateLimited(endpoint) }

func RecordRepositoryUpdateLatency(ms float64) { globalManager.RecordRepositoryUpdateLatency(ms) }
func RecordRepositoryQueryLatency(ms float64)  { globalManager.RecordRepositoryQueryLatency(ms) }

func UpdateQueueSize(n int)          { globalManager.UpdateQueueSize(n) }
func UpdateQueueCapacity(n int)      { globalManager.UpdateQueueCapacity(n) }
func RecordQueueEnqueue()            { globalManager.RecordQueueEnqueue() }
func RecordQueueRejected()           { globalManager.RecordQueueRejected() }
func RecordWriterProcessed()         { globalManager.RecordWriterProcessed() }
func RecordWriterLatency(ms float64) { globalManager.RecordWriterLatency(ms) }

func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

func RecordErrorByType(errorType, severity string) {
	globalManager.RecordErrorByType(errorType, severity)
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

func RecordErrorLatency(component, errorType string, ms float64) {
	globalManager.RecordErrorLatency(component, errorType, ms)
}

func UpdateSystemMemoryUsage(bytes uint64) { globalManager.UpdateSystemMemoryUsage(bytes) }
func UpdateSystemGoroutineCount(n int)     { globalManager.UpdateSystemGoroutineCount(n) }
func RecordSystemGCPauseTime(ms float64)   { globalManager.RecordSystemGCPauseTime(ms) }
