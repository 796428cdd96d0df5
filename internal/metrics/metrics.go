// Package metrics exposes Prometheus collectors for ETL runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Fetch client metrics
	FetchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_fetch_outcomes_total",
			Help: "Total number of TMDB fetches by final outcome",
		},
		[]string{"outcome"},
	)

	FetchRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_fetch_retries_total",
			Help: "Total number of retried TMDB requests by reason",
		},
		[]string{"reason"},
	)

	ThrottleWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tmdb_throttle_wait_seconds",
			Help:    "Time spent sleeping on 429 responses",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	InflightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tmdb_inflight_requests",
			Help: "Number of TMDB requests currently holding a connection slot",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"},
	)

	// Pipeline metrics
	DiscoveredIDs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_discovered_ids_total",
			Help: "Total number of IDs produced by discovery",
		},
		[]string{"media", "strategy"},
	)

	EntitiesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_entities_fetched_total",
			Help: "Total number of detail records fetched",
		},
		[]string{"entity", "status"},
	)

	RowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_rows_loaded_total",
			Help: "Total number of rows upserted",
		},
		[]string{"table"},
	)

	RowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_rows_dropped_total",
			Help: "Rows dropped because their parent key could not be resolved",
		},
		[]string{"table"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "etl_stage_duration_seconds",
			Help:    "Stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"stage", "status"},
	)

	// NATS metrics
	NatsMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Total number of NATS messages published",
		},
		[]string{"subject", "status"},
	)

	ApplicationInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "application_info",
			Help: "Application information",
		},
		[]string{"service", "version"},
	)
)

// Init records static application information.
func Init(serviceName, version string) {
	ApplicationInfo.WithLabelValues(serviceName, version).Set(1)
}
