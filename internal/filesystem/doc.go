/*
Package filesystem provides the filesystem primitives the thumbnail service
builds on: reads with retry on NFS stale file handles, atomic writes, and
removal that treats a missing file as success.

# Retry

Thumbnail and media directories are frequently NFS mounts. ESTALE (stale file
handle) errors are transient there, so reads and stats are retried with
exponential backoff:

	data, err := filesystem.ReadFileWithRetry(path, filesystem.DefaultRetryConfig())

Only ESTALE triggers a retry; every other error is returned immediately. The
defaults are 3 retries starting at 50ms and capped at 500ms.

# Writes

WriteFileAtomic writes to a temporary file in the destination directory and
renames it into place, so a reader never observes a partially written
thumbnail.

# Metrics

Every call emits an Event labelled with a volume name resolved from the path
by a VolumeResolver ("thumbnails", "media", ...). A completed call carries
OutcomeOK or OutcomeError and its duration; a missing file is OutcomeOK.
The retry loop also emits OutcomeStale per stale handle, then
OutcomeRecovered or OutcomeExhausted. Events go to the Observer installed
with SetObserver and are dropped when none is set.
*/
package filesystem
