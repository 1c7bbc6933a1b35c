// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - MEDIA_DIR: uploaded originals (default: /media)
//   - CACHE_DIR: cache root; thumbnails live in CACHE_DIR/thumbnails (default: /cache)
//   - DATABASE_DIR: SQLite database directory (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: enable the metrics server (default: true)
//   - THUMBNAIL_BACKEND: "imaging" (pure Go) or "vips" (libvips) (default: imaging)
//   - THUMBNAIL_CACHE_MAX_BYTES: memory budget for cached thumbnails, human
//     sizes accepted (default: 256MiB)
//   - THUMBNAIL_CACHE_TTL: maximum memory residency of a thumbnail (default: 1h)
//   - THUMBNAIL_CACHE_MAX_ENTRIES: accepted and ignored; the cache is bounded by size
//   - THUMBNAIL_WORKERS: render worker count (default: CPU count)
//   - MAX_UPLOAD_BYTES: largest accepted upload (default: 64MiB)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES, LOG_HEALTH_CHECKS: request logging filters
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: see package memory
//
// All three directories are created when missing and must be writable.
//
// # Build Information
//
// Version, Commit and BuildTime are injected via -ldflags and exposed via
// [GetBuildInfo].
//
// # Lifecycle Logging
//
// [LogDatabaseInit], [LogThumbnailInit], [LogHTTPRoutes], [LogServerStarted],
// [LogShutdownInitiated] and [LogShutdownComplete] print the banner-style
// sections seen in the service log.
package startup
