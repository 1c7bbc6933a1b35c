package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"thumbnail-service/internal/filesystem"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnail_service_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnail_service_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnail_service_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnail_service_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnail_service_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnail_service_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Thumbnail generation metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnail_service_generations_total",
			Help: "Total number of thumbnail generations by size and status",
		},
		[]string{"size", "status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnail_service_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds, including the wait for a render worker",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"size"},
	)

	ThumbnailBackgroundGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnail_service_background_generations_total",
			Help: "Total number of per-size background pre-generations by status",
		},
		[]string{"status"},
	)

	ThumbnailBackgroundInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnail_service_background_in_flight",
			Help: "Number of background pre-generation tasks currently running",
		},
	)

	ThumbnailWorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnail_service_render_workers_active",
			Help: "Number of render workers currently executing a task",
		},
	)
)

// Thumbnail cache metrics
var (
	ThumbnailCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnail_service_cache_hits_total",
			Help: "Total number of thumbnail cache hits by layer",
		},
		[]string{"layer"}, // "memory" or "disk"
	)

	ThumbnailCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbnail_service_cache_misses_total",
			Help: "Total number of requests that required generation",
		},
	)

	ThumbnailSharedLoads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbnail_service_shared_loads_total",
			Help: "Total number of requests that received the result of another caller's load",
		},
	)

	ThumbnailPersistErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbnail_service_persist_errors_total",
			Help: "Total number of generated thumbnails that could not be written to disk",
		},
	)

	ThumbnailInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbnail_service_invalidations_total",
			Help: "Total number of files whose thumbnails were deleted",
		},
	)

	ThumbnailCacheWeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnail_service_cache_weight_bytes",
			Help: "Resident weight of the in-memory thumbnail cache in bytes",
		},
	)

	ThumbnailCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnail_service_cache_entries",
			Help: "Number of thumbnails resident in the in-memory cache",
		},
	)

	ThumbnailCacheMaxWeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnail_service_cache_max_weight_bytes",
			Help: "Configured maximum weight of the in-memory thumbnail cache in bytes",
		},
	)
)

// Library metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnail_service_uploads_total",
			Help: "Total number of uploads by status",
		},
		[]string{"status"}, // "success", "unsupported", "too_large", "error"
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbnail_service_upload_bytes_total",
			Help: "Total number of bytes accepted through uploads",
		},
	)

	DeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnail_service_deletions_total",
			Help: "Total number of file deletions by status",
		},
		[]string{"status"},
	)

	StoredFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnail_service_stored_files",
			Help: "Number of original images known to the library",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnail_service_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnail_service_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnail_service_filesystem_retries_total",
			Help: "Stale file handle retry steps by outcome (stale, recovered, exhausted)",
		},
		[]string{"volume", "operation", "outcome"},
	)
)

// ObserveFilesystem records a filesystem event. Install it with
// filesystem.SetObserver.
func ObserveFilesystem(e filesystem.Event) {
	if !e.Outcome.Completed() {
		FilesystemRetries.WithLabelValues(e.Volume, e.Operation, string(e.Outcome)).Inc()
		return
	}
	FilesystemOperationDuration.WithLabelValues(e.Volume, e.Operation).Observe(e.Duration.Seconds())
	if e.Outcome == filesystem.OutcomeError {
		FilesystemOperationErrors.WithLabelValues(e.Volume, e.Operation).Inc()
	}
}

// Memory metrics
var (
	GoMemLimitBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnail_service_go_memlimit_bytes",
			Help: "Configured GOMEMLIMIT in bytes (0 if unset)",
		},
	)

	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnail_service_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnail_service_memory_paused",
			Help: "1 while background thumbnail generation is paused for memory pressure",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbnail_service_memory_gc_pauses_total",
			Help: "Times background work was paused and a GC forced because memory was critical",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thumbnail_service_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
