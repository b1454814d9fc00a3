// Package metrics provides Prometheus metrics for the churnlens service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the churnlens service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Evaluation metrics
	accountsEvaluated  prometheus.Counter
	evaluationPasses   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	lastEvaluationUnix prometheus.Gauge
	reloadErrors       *prometheus.CounterVec

	// Data quality metrics
	unknownEnumValues *prometheus.CounterVec
	malformedRecords  prometheus.Counter
	duplicateAccounts prometheus.Counter

	// Portfolio metrics, reset on every pass
	accountsTotal      prometheus.Gauge
	accountsByCategory *prometheus.GaugeVec
	portfolioARR       prometheus.Gauge
	revenueAtRisk      prometheus.Gauge

	// Snapshot store metrics
	snapshotQueryLatency prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue metrics
	queueCapacity          prometheus.Gauge
	queueSize              prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker metrics
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Error metrics
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "churnlens",
		subsystem:        "portfolio",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	latencyMs := []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

	m.accountsEvaluated = auto.NewCounter(m.counter("accounts_evaluated_total",
		"Total number of account records classified"))
	m.evaluationPasses = auto.NewCounterVec(m.counter("evaluation_passes_total",
		"Evaluation passes by trigger and result"), []string{"trigger", "result"})
	m.evaluationDuration = auto.NewHistogram(m.histogram("evaluation_duration_milliseconds",
		"Duration of a full load and evaluation pass in milliseconds", latencyMs))
	m.lastEvaluationUnix = auto.NewGauge(m.gauge("last_evaluation_timestamp_seconds",
		"Unix time of the last successful evaluation pass"))
	m.reloadErrors = auto.NewCounterVec(m.counter("reload_errors_total",
		"Failed reloads by trigger"), []string{"trigger"})

	m.unknownEnumValues = auto.NewCounterVec(m.counter("unknown_enum_values_total",
		"Enumeration cells holding a value outside their closed set"), []string{"field"})
	m.malformedRecords = auto.NewCounter(m.counter("malformed_records_total",
		"Rows rejected by the loader"))
	m.duplicateAccounts = auto.NewCounter(m.counter("duplicate_accounts_total",
		"Account ids seen more than once in a dataset"))

	m.accountsTotal = auto.NewGauge(m.gauge("accounts",
		"Accounts in the current snapshot"))
	m.accountsByCategory = auto.NewGaugeVec(m.gauge("accounts_by_category",
		"Accounts in the current snapshot by portfolio category"), []string{"category"})
	m.portfolioARR = auto.NewGauge(m.gauge("arr_total",
		"Total ARR of the current snapshot"))
	m.revenueAtRisk = auto.NewGauge(m.gauge("revenue_at_risk_total",
		"Total revenue at risk of the current snapshot"))

	m.snapshotQueryLatency = auto.NewHistogram(m.histogram("snapshot_query_latency_milliseconds",
		"Latency of snapshot store reads in milliseconds", latencyMs))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total",
		"Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", nil), []string{"endpoint", "method", "status_code"})

	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity",
		"Maximum capacity of the evaluation job queue"))
	m.queueSize = auto.NewGauge(m.gauge("queue_size",
		"Current number of queued evaluation jobs"))
	m.queueUtilization = auto.NewGauge(m.gauge("queue_utilization_ratio",
		"Queue size over capacity"))
	m.queueEnqueued = auto.NewCounter(m.counter("queue_enqueued_total",
		"Jobs accepted by the queue"))
	m.queueDequeued = auto.NewCounter(m.counter("queue_dequeued_total",
		"Jobs handed to workers"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("queue_enqueue_errors_total",
		"Jobs the queue refused"))
	m.queueProcessingLatency = auto.NewHistogram(m.histogram("queue_processing_latency_milliseconds",
		"Time spent enqueuing a job in milliseconds", latencyMs))

	m.workerActiveCount = auto.NewGauge(m.gauge("worker_active_count",
		"Workers in the evaluation pool"))
	m.workerIdleCount = auto.NewGauge(m.gauge("worker_idle_count",
		"Workers waiting for jobs"))
	m.workerMessagesPerSecond = auto.NewGauge(m.gauge("worker_jobs_per_second",
		"Jobs classified per second over the last pass"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogram("worker_processing_latency_milliseconds",
		"Time to classify and store one job in milliseconds", latencyMs))
	m.workerErrors = auto.NewCounter(m.counter("worker_errors_total",
		"Jobs a worker failed to store"))

	m.errorsByComponent = auto.NewCounterVec(m.counter("errors_by_component_total",
		"Errors by component and type"), []string{"component", "error_type"})
	m.errorsByType = auto.NewCounterVec(m.counter("errors_by_type_total",
		"Errors by type and severity"), []string{"error_type", "severity"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counter("errors_by_endpoint_total",
		"HTTP errors by endpoint, method and type"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes",
		"System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count",
		"Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogram("system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds", latencyMs))
}

// Evaluation Metrics Functions.

// RecordAccountsEvaluated adds n to the classified accounts counter.
func RecordAccountsEvaluated(n int) {
	globalManager.accountsEvaluated.Add(float64(n))
}

// RecordEvaluationPass records one pass and its duration.
func RecordEvaluationPass(trigger, result string, durationMs float64) {
	globalManager.evaluationPasses.WithLabelValues(trigger, result).Inc()
	globalManager.evaluationDuration.Observe(durationMs)
}

// UpdateLastEvaluation sets the timestamp of the last successful pass.
func UpdateLastEvaluation(unix int64) {
	globalManager.lastEvaluationUnix.Set(float64(unix))
}

// RecordReloadError increments the reload error counter for trigger.
func RecordReloadError(trigger string) {
	globalManager.reloadErrors.WithLabelValues(trigger).Inc()
}

// Data Quality Metrics Functions.

// RecordUnknownEnumValue increments the unknown value counter for field.
func RecordUnknownEnumValue(field string) {
	globalManager.unknownEnumValues.WithLabelValues(field).Inc()
}

// RecordMalformedRecords adds n rejected rows.
func RecordMalformedRecords(n int) {
	globalManager.malformedRecords.Add(float64(n))
}

// RecordDuplicateAccounts adds n duplicated account ids.
func RecordDuplicateAccounts(n int) {
	globalManager.duplicateAccounts.Add(float64(n))
}

// Portfolio Metrics Functions.

// UpdatePortfolio publishes the KPI gauges of the current snapshot.
// Categories missing from counts are reset to zero.
func UpdatePortfolio(accounts int, totalARR, revenueAtRisk float64, counts map[string]int) {
	globalManager.accountsTotal.Set(float64(accounts))
	globalManager.portfolioARR.Set(totalARR)
	globalManager.revenueAtRisk.Set(revenueAtRisk)
	globalManager.accountsByCategory.Reset()
	for category, n := range counts {
		globalManager.accountsByCategory.WithLabelValues(category).Set(float64(n))
	}
}

// RecordSnapshotQueryLatency records the latency of a snapshot read.
func RecordSnapshotQueryLatency(latencyMs float64) {
	globalManager.snapshotQueryLatency.Observe(latencyMs)
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue Metrics Functions.

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// UpdateWorkerMessagesPerSecond sets the average jobs processed per second.
func UpdateWorkerMessagesPerSecond(rate float64) {
	globalManager.workerMessagesPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
