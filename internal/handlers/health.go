package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"thumbnail-service/internal/logging"
	"thumbnail-service/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// readinessTimeout bounds the database ping of a probe.
const readinessTimeout = 2 * time.Second

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Error   string `json:"error,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Thumbnail cache
	CacheEntries     int   `json:"cacheEntries"`
	CacheWeightBytes int64 `json:"cacheWeightBytes"`
	CacheMaxBytes    int64 `json:"cacheMaxBytes"`
}

func (h *Handlers) ping(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return h.db.Ping(ctx)
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	stats := h.files.ThumbnailStats()
	response := HealthResponse{
		Status:           statusHealthy,
		Ready:            true,
		Version:          startup.Version,
		Uptime:           time.Since(h.startTime).Round(time.Second).String(),
		GoVersion:        runtime.Version(),
		NumCPU:           runtime.NumCPU(),
		NumGoroutine:     runtime.NumGoroutine(),
		CacheEntries:     stats.ResidentEntries,
		CacheWeightBytes: stats.ResidentWeight,
		CacheMaxBytes:    stats.MaxWeight,
	}

	status := http.StatusOK
	if err := h.ping(r.Context()); err != nil {
		logging.Warn("Health check: database unavailable: %v", err)
		response.Status = statusDegraded
		response.Ready = false
		response.Error = "database unavailable"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		writeJSON(w, response)
	}
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only when the database answers
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status, body := http.StatusOK, "ready"
	if err := h.ping(r.Context()); err != nil {
		status, body = http.StatusServiceUnavailable, "not_ready"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": body})
	}
}
