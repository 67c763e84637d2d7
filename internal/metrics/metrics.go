package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_indexer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_indexer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_indexer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Indexing pipeline metrics
var (
	IndexerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_indexer_runs_total",
			Help: "Total number of indexing runs",
		},
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_indexer_running",
			Help: "Whether an indexing run is currently in progress (0 or 1)",
		},
	)

	IndexerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_indexer_last_run_duration_seconds",
			Help: "Duration of the last indexing run in seconds",
		},
	)

	IndexerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_indexer_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed indexing run",
		},
	)

	FilesDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_indexer_files_discovered_total",
			Help: "Files emitted by the directory walker",
		},
	)

	FilesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_indexer_files_processed_total",
			Help: "Files successfully processed into metadata records",
		},
	)

	FilesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_indexer_files_skipped_total",
			Help: "Files skipped because their content hash was already indexed",
		},
	)

	ProcessingErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_indexer_processing_errors_total",
			Help: "Per-file processing failures (unreadable, undecodable)",
		},
	)

	DocumentsIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_indexer_documents_indexed_total",
			Help: "Metadata records merged into the search backend",
		},
	)

	ThumbnailsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_indexer_thumbnails_generated_total",
			Help: "Thumbnails written to the thumbnail directory",
		},
	)
)

// Search backend metrics
var (
	SearchQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_indexer_search_queries_total",
			Help: "Search backend operations by type and status",
		},
		[]string{"operation", "status"},
	)

	SearchQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_indexer_search_query_duration_seconds",
			Help:    "Search backend operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)
