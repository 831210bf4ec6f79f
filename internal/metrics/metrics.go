package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_cache_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frame_cache_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_cache_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frame_cache_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frame_cache_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"result"}, // "commit" or "rollback"
	)
)

// Update-cycle metrics
var (
	CycleRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "frame_cache_update_cycles_total",
			Help: "Total number of cache update cycles",
		},
	)

	CycleLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "frame_cache_last_update_timestamp",
			Help: "Timestamp of the last completed update cycle",
		},
	)

	CycleLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "frame_cache_last_update_duration_seconds",
			Help: "Duration of the last update cycle in seconds",
		},
	)

	CycleIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "frame_cache_update_running",
			Help: "Whether an update cycle is currently running (1 or 0)",
		},
	)

	FoldersUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "frame_cache_folders_updated_total",
			Help: "Total number of folders detected as new or modified",
		},
	)

	FilesUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "frame_cache_files_updated_total",
			Help: "Total number of files detected as new or modified",
		},
	)

	FilesPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "frame_cache_entries_purged_total",
			Help: "Total number of folder and file rows purged for missing paths",
		},
	)

	ExtractFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "frame_cache_extract_failures_total",
			Help: "Total number of per-file metadata extraction failures",
		},
	)

	CycleErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "frame_cache_update_errors_total",
			Help: "Total number of update cycles that failed to commit",
		},
	)
)

// Geocode metrics
var (
	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_cache_geocode_lookups_total",
			Help: "Total number of reverse geocode lookups",
		},
		[]string{"status"}, // "hit", "empty", "error"
	)
)
