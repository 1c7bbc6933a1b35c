// Package vips provides a libvips-backed thumbnail.Renderer.
//
// libvips decodes and resamples with far less memory than the pure-Go
// pipeline, which matters for very large originals. It requires the libvips
// shared library at runtime, so it is opt-in (THUMBNAIL_BACKEND=vips).
//
// Init must be called once before rendering and Shutdown once at exit.
// govips cannot restart libvips after Shutdown within the same process.
package vips
