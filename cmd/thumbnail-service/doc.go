// Package main provides the entry point for the thumbnail service.
//
// The service stores uploaded images and serves WebP thumbnails of them at
// three sizes (icon, preview and large). Thumbnails are generated on first
// request, persisted under the cache directory and kept in a weight-bounded
// memory cache with a per-entry TTL. Concurrent requests for the same file
// and size share a single generation.
//
// # Application Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from MEMORY_LIMIT or MEMORY_RATIO
//  2. Configuration Loading: Reads environment variables and validates directories
//  3. Database Initialization: Opens the SQLite file catalog
//  4. Component Initialization:
//     - Thumbnail backend: imaging (pure Go) or libvips
//     - Render worker pool sized to the available CPUs
//     - Memory monitor pausing background generation under pressure
//     - Thumbnail cache and upload library
//     - Metrics collector
//  5. HTTP Server Setup: Routes, logging and metrics middleware
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM and stops components in order
//
// # HTTP Servers
//
//  1. Main Server (default port 8080):
//     - POST /api/files uploads an image (multipart field "file")
//     - GET /api/files, GET and DELETE /api/files/{id}
//     - GET /api/files/{id}/original
//     - GET /api/files/{id}/thumbnail/{icon|preview|large}
//     - GET /api/thumbnails/stats
//     - Health and version endpoints
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//     - Health check endpoint (/health)
//
// # Graceful Shutdown
//
//  1. Stop accepting HTTP requests (30s timeout)
//  2. Shutdown metrics server
//  3. Stop metrics collector
//  4. Stop memory monitor and wait for background thumbnails
//  5. Stop render workers and release libvips
//  6. Close the database
//
// # Build Requirements
//
// CGO is required for SQLite and the WebP encoder. The libvips backend
// additionally needs libvips at build and run time.
//
//	go build -o thumbnail-service ./cmd/thumbnail-service
package main
