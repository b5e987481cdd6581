package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.3, 0.6, 1, 3, 6, 9, 20, 30, 60, 90, 120},
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// Sync engine metrics
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_scans_total",
			Help: "Total number of initial/reconciliation scans run",
		},
		[]string{"platform", "kind", "status"},
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_scan_duration_seconds",
			Help:    "Duration of a scan or reconciliation pass",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"platform", "kind"},
	)

	mappingSuggestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_mapping_suggestions_total",
			Help: "Total number of mapping suggestions generated, by match kind",
		},
		[]string{"match_kind"},
	)

	pushOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_push_operations_total",
			Help: "Total number of push operations executed",
		},
		[]string{"platform", "operation", "status"},
	)

	webhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_webhook_events_total",
			Help: "Total number of inbound webhook events, by verification outcome",
		},
		[]string{"platform", "topic", "outcome"},
	)

	inventoryFanoutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_inventory_fanout_total",
			Help: "Total number of inventory updates fanned out to other connections",
		},
		[]string{"status"},
	)

	// Database metrics
	dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "table"},
	)

	// External API (platform) metrics
	externalAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_api_calls_total",
			Help: "Total number of external API calls",
		},
		[]string{"service", "method", "status_code"},
	)

	externalAPICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "external_api_call_duration_seconds",
			Help:    "Duration of external API calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 60},
		},
		[]string{"service", "method", "status_code"},
	)

	// Queue metrics
	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_queue_depth",
			Help: "Approximate number of pending tasks per queue",
		},
		[]string{"queue"},
	)

	cacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"operation", "result"},
	)
)

// MetricsCollector provides methods to record various metrics.
type MetricsCollector struct{}

// NewMetricsCollector creates a new metrics collector instance.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordHTTPRequest records HTTP request metrics.
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, statusCode).Observe(duration.Seconds())
}

// RecordScan records a completed scan or reconciliation pass.
func (m *MetricsCollector) RecordScan(platform, kind, status string, duration time.Duration) {
	scansTotal.WithLabelValues(platform, kind, status).Inc()
	scanDuration.WithLabelValues(platform, kind).Observe(duration.Seconds())
}

// RecordMappingSuggestion records one mapping suggestion by its match kind.
func (m *MetricsCollector) RecordMappingSuggestion(matchKind string) {
	mappingSuggestionsTotal.WithLabelValues(matchKind).Inc()
}

// RecordPushOperation records a push coordinator outcome.
func (m *MetricsCollector) RecordPushOperation(platform, operation, status string) {
	pushOperationsTotal.WithLabelValues(platform, operation, status).Inc()
}

// RecordWebhookEvent records an inbound webhook delivery outcome.
func (m *MetricsCollector) RecordWebhookEvent(platform, topic, outcome string) {
	webhookEventsTotal.WithLabelValues(platform, topic, outcome).Inc()
}

// RecordInventoryFanout records one fan-out attempt of an inventory update to
// another platform connection.
func (m *MetricsCollector) RecordInventoryFanout(status string) {
	inventoryFanoutTotal.WithLabelValues(status).Inc()
}

// RecordDatabaseQuery records database query metrics.
func (m *MetricsCollector) RecordDatabaseQuery(operation, table string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// UpdateDatabaseConnections updates the active database connections gauge.
func (m *MetricsCollector) UpdateDatabaseConnections(count float64) {
	dbConnectionsActive.Set(count)
}

// RecordExternalAPICall records external (platform) API call metrics.
func (m *MetricsCollector) RecordExternalAPICall(service, method, statusCode string, duration time.Duration) {
	externalAPICallsTotal.WithLabelValues(service, method, statusCode).Inc()
	externalAPICallDuration.WithLabelValues(service, method, statusCode).Observe(duration.Seconds())
}

// UpdateQueueDepth updates the pending-task gauge for one asynq queue.
func (m *MetricsCollector) UpdateQueueDepth(queue string, depth float64) {
	queueDepth.WithLabelValues(queue).Set(depth)
}

// RecordCacheOperation records cache operation metrics.
func (m *MetricsCollector) RecordCacheOperation(operation, result string) {
	cacheOperations.WithLabelValues(operation, result).Inc()
}

// PrometheusMiddleware creates a Gin middleware for recording HTTP metrics.
func PrometheusMiddleware(collector *MetricsCollector) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		method := c.Request.Method
		endpoint := c.FullPath()

		if endpoint == "" {
			if statusCode == 404 {
				endpoint = "not_found"
			} else if method == "OPTIONS" {
				endpoint = "cors_preflight"
			} else {
				endpoint = "unknown"
			}
		}

		collector.RecordHTTPRequest(method, endpoint, strconv.Itoa(statusCode), duration)
	})
}

var globalMetricsCollector = NewMetricsCollector()

// GetGlobalMetricsCollector returns the process-wide MetricsCollector.
func GetGlobalMetricsCollector() *MetricsCollector {
	return globalMetricsCollector
}
