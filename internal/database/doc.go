// Package database provides SQLite storage for uploaded file records.
//
// Each record maps a generated file id to the stored original (its path,
// detected MIME type and size). Thumbnails are not stored here; they are
// derived from the original on demand.
//
// The database uses WAL mode for concurrent reads and initializes its
// schema on open.
package database
