// Package thumbnail generates and caches WebP thumbnails of uploaded images.
//
// Three sizes exist (icon, preview, large). A Service answers GetThumbnail by
// consulting, in order, a weight-bounded in-memory cache with per-entry TTL,
// the on-disk artifact at <dir>/<size>/<fileID>.webp, and finally the
// Generator. Concurrent requests for the same (file, size) share a single
// load. Rendering is CPU-bound and runs on a dedicated worker pool behind the
// Engine so it never occupies the goroutines coordinating cache lookups.
//
// After an upload, GenerateAllSizesBackground pre-renders every size to disk
// without blocking the caller; DeleteThumbnails removes the artifacts and
// memory entries when the original is deleted.
package thumbnail
