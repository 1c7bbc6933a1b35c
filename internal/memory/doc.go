// Package memory configures the Go runtime memory limit for containers and
// applies backpressure to background thumbnail generation.
//
// # Memory limit
//
// GOMAXPROCS follows cgroup CPU limits automatically, but GOMEMLIMIT must be
// set explicitly. Call [ConfigureFromEnv] early in main:
//
//   - GOMEMLIMIT: standard Go variable, takes precedence when set.
//   - MEMORY_LIMIT: container limit, in bytes or a human size ("512MiB",
//     "1Gi"). Typically injected through the Kubernetes Downward API.
//   - MEMORY_RATIO: fraction of MEMORY_LIMIT given to the Go heap
//     (default 0.85). Lower it when libvips is used, since its buffers live
//     outside the Go heap.
//
// # Backpressure
//
// A [Monitor] samples heap allocation against the limit. Above the critical
// watermark it pauses callers of [Monitor.WaitIfPaused] and forces a GC;
// they resume once usage drops below the high watermark. The thumbnail cache
// consults it before each background render so that pre-generation after a
// burst of uploads cannot push the process into the OOM killer. Requests
// for thumbnails are never paused.
package memory
