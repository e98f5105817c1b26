// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	// Ingestion
	RecordsReceived *prometheus.CounterVec
	RecordsDropped  *prometheus.CounterVec
	WSNotifications prometheus.Counter
	RPCCallLatency  *prometheus.HistogramVec

	// Enrichment
	StageOutcomes *prometheus.CounterVec
	LookupLatency *prometheus.HistogramVec
	LookupErrors  *prometheus.CounterVec
	CacheRequests *prometheus.CounterVec

	// Rendering and dispatch
	Renders       *prometheus.CounterVec
	RenderLatency prometheus.Histogram
	Sends         *prometheus.CounterVec

	// Pipeline
	QueueDepth         prometheus.Gauge
	PassOutcomes       *prometheus.CounterVec
	PassDuration       prometheus.Histogram
	UnknownErrors      prometheus.Counter
	SecondaryThreshold prometheus.Gauge

	// Storage
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health
	LastSuccessfulDispatch prometheus.Gauge
}

// NewMetrics creates and registers all metrics under namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_sales_bot"
	}

	return &Metrics{
		RecordsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_received_total",
			Help:      "Raw trade records received by feed",
		}, []string{"feed"}),
		RecordsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_dropped_total",
			Help:      "Raw records dropped before reaching the pipeline",
		}, []string{"reason"}),
		WSNotifications: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_notifications_total",
			Help:      "logsNotification messages received",
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		StageOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "stage_outcomes_total",
			Help:      "Enrichment stage results by stage and status",
		}, []string{"stage", "status"}),
		LookupLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "lookup_latency_seconds",
			Help:      "External lookup latency in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		LookupErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "lookup_errors_total",
			Help:      "External lookup failures by source",
		}, []string{"source"}),
		CacheRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "cache_requests_total",
			Help:      "Lookup cache requests by cache and result",
		}, []string{"cache", "result"}),

		Renders: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "renders_total",
			Help:      "Banner renders by status",
		}, []string{"status"}),
		RenderLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "latency_seconds",
			Help:      "Banner render latency including image download and upload",
			Buckets:   prometheus.DefBuckets,
		}),
		Sends: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sends_total",
			Help:      "Notification send attempts by channel and status",
		}, []string{"channel", "status"}),

		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "queue_depth",
			Help:      "Trade events waiting for a worker",
		}),
		PassOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "pass_outcomes_total",
			Help:      "Completed pipeline passes by outcome",
		}, []string{"outcome"}),
		PassDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of one record pass",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		UnknownErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "unknown_errors_total",
			Help:      "Failures caught by the supervisor boundary",
		}),
		SecondaryThreshold: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "secondary_min_price",
			Help:      "Current display price threshold for the secondary channel",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulDispatch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_dispatch_timestamp",
			Help:      "Unix timestamp of the last successful channel send",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordReceived counts a raw record from feed.
func RecordReceived(feed string) {
	DefaultMetrics.RecordsReceived.WithLabelValues(feed).Inc()
}

// RecordDropped counts a record discarded before parsing completed.
func RecordDropped(reason string) {
	DefaultMetrics.RecordsDropped.WithLabelValues(reason).Inc()
}

// RecordWSNotification counts a websocket log notification.
func RecordWSNotification() {
	DefaultMetrics.WSNotifications.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordStage counts one enrichment stage result.
func RecordStage(stage, status string) {
	DefaultMetrics.StageOutcomes.WithLabelValues(stage, status).Inc()
}

// RecordLookup records latency and failure of an external lookup.
func RecordLookup(source string, seconds float64, err error) {
	DefaultMetrics.LookupLatency.WithLabelValues(source).Observe(seconds)
	if err != nil {
		DefaultMetrics.LookupErrors.WithLabelValues(source).Inc()
	}
}

// RecordCache counts a cache hit or miss.
func RecordCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheRequests.WithLabelValues(cache, result).Inc()
}

// RecordRender records a render attempt.
func RecordRender(status string, seconds float64) {
	DefaultMetrics.Renders.WithLabelValues(status).Inc()
	DefaultMetrics.RenderLatency.Observe(seconds)
}

// RecordSend counts a notification attempt.
func RecordSend(channel, status string) {
	DefaultMetrics.Sends.WithLabelValues(channel, status).Inc()
}

// RecordDispatchSuccess stamps the health gauge.
func RecordDispatchSuccess(unix int64) {
	DefaultMetrics.LastSuccessfulDispatch.Set(float64(unix))
}

// SetQueueDepth updates the pipeline queue gauge.
func SetQueueDepth(n int) {
	DefaultMetrics.QueueDepth.Set(float64(n))
}

// RecordPass counts a finished pass.
func RecordPass(outcome string, seconds float64) {
	DefaultMetrics.PassOutcomes.WithLabelValues(outcome).Inc()
	DefaultMetrics.PassDuration.Observe(seconds)
}

// RecordUnknownError counts a failure caught by the supervisor.
func RecordUnknownError() {
	DefaultMetrics.UnknownErrors.Inc()
}

// SetSecondaryThreshold publishes the active threshold.
func SetSecondaryThreshold(v float64) {
	DefaultMetrics.SecondaryThreshold.Set(v)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
