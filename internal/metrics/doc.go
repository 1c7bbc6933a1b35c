// Package metrics provides Prometheus instrumentation for the thumbnail service.
//
// All metrics are prefixed with "thumbnail_service_" and registered through
// promauto at package initialisation.
//
// # Metric Categories
//
// Thumbnail cache:
//   - ThumbnailCacheHits: hits by layer ("memory", "disk")
//   - ThumbnailCacheMisses: requests that had to generate
//   - ThumbnailSharedLoads: callers that waited on another caller's load
//   - ThumbnailCacheWeight / ThumbnailCacheEntries / ThumbnailCacheMaxWeight:
//     resident state, refreshed by the Collector
//
// Generation:
//   - ThumbnailGenerationsTotal: by size and status
//   - ThumbnailGenerationDuration: by size
//   - ThumbnailBackgroundGenerations / ThumbnailBackgroundInFlight
//   - ThumbnailWorkersActive: render workers currently busy
//
// The remaining groups cover HTTP requests, the SQLite file catalogue,
// uploads and deletions, and filesystem calls. ObserveFilesystem is
// installed as the filesystem package's event hook: completed calls feed the
// duration histogram and error counter, and stale handle retry steps feed
// FilesystemRetries by outcome.
//
// # Collector
//
// Gauges that describe state rather than events are refreshed by a Collector
// that polls a StatsProvider on a fixed interval:
//
//	collector := metrics.NewCollector(lib, time.Minute)
//	collector.Start()
//	defer collector.Stop()
package metrics
