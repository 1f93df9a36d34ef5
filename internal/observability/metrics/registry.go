// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Collection metrics track scheduled fetches and deduplication
var (
	// FetchDuration measures one source fetch cycle end to end
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Time taken to fetch one source",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"source_id"},
	)

	// FetchOutcomes counts fetch cycles by terminal status
	FetchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_total",
			Help: "Total number of source fetch cycles by outcome",
		},
		[]string{"source_id", "status"},
	)

	// ArticlesIngested counts articles accepted as new
	ArticlesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_ingested_total",
			Help: "Total number of new articles accepted into the store",
		},
		[]string{"source_id"},
	)

	// DedupHits counts duplicates caught at each cascade level
	DedupHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_hits_total",
			Help: "Total number of duplicates caught, by cascade level",
		},
		[]string{"level"}, // level: url, simhash, minhash
	)
)

// Enrichment metrics track the LLM pipeline
var (
	// EnrichmentsTotal counts enrichment attempts by outcome
	EnrichmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichments_total",
			Help: "Total number of article enrichments by outcome",
		},
		[]string{"outcome"}, // outcome: completed, failed
	)

	// EnrichmentDuration measures one enrichment including embedding
	EnrichmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "enrichment_duration_seconds",
			Help:    "Time taken to enrich one article",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// EnrichmentQueueDepth tracks articles waiting for enrichment
	EnrichmentQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "enrichment_queue_depth",
			Help: "Number of articles queued for enrichment",
		},
	)
)

// Delivery metrics track push and webhook fan-out
var (
	// PushConnections tracks live WebSocket connections
	PushConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "push_connections",
			Help: "Number of live WebSocket push connections",
		},
	)

	// PushDelivered counts messages written to push clients
	PushDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "push_delivered_total",
			Help: "Total number of articles delivered over WebSocket push",
		},
	)

	// PushDropped counts messages dropped from slow client buffers
	PushDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "push_dropped_total",
			Help: "Total number of push messages dropped due to slow clients",
		},
	)

	// WebhookAttempts counts webhook delivery attempts by outcome
	WebhookAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_attempts_total",
			Help: "Total number of webhook delivery attempts by outcome",
		},
		[]string{"outcome"}, // outcome: success, failed
	)
)

// Discovery metrics track the source discovery loop
var (
	// DiscoveryRuns counts scan and validation runs
	DiscoveryRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_runs_total",
			Help: "Total number of discovery runs by phase",
		},
		[]string{"phase"}, // phase: scan, validate
	)

	// CandidatesTotal counts candidate transitions by resulting status
	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_candidates_total",
			Help: "Total number of candidate status transitions",
		},
		[]string{"status"},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQuery records the duration of a database query operation.
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
