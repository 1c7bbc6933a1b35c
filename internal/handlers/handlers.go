package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"thumbnail-service/internal/database"
	"thumbnail-service/internal/thumbnail"
)

// Files is the file library the API serves.
type Files interface {
	Save(ctx context.Context, name, declaredMIME string, r io.Reader) (*database.File, error)
	Get(ctx context.Context, id string) (*database.File, error)
	List(ctx context.Context, limit, offset int) (*database.FileList, error)
	Delete(ctx context.Context, id string) error
	Thumbnail(ctx context.Context, id string, size thumbnail.Size) ([]byte, error)
	ThumbnailStats() thumbnail.Stats
	MaxUploadBytes() int64
}

// Pinger checks a backing store during readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	files     Files
	db        Pinger
	startTime time.Time
}

func New(files Files, db Pinger) *Handlers {
	return &Handlers{
		files:     files,
		db:        db,
		startTime: time.Now(),
	}
}

// RegisterRoutes adds every API route to r.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/files", h.UploadFile).Methods(http.MethodPost)
	api.HandleFunc("/files", h.ListFiles).Methods(http.MethodGet)
	api.HandleFunc("/files/{id}", h.GetFile).Methods(http.MethodGet)
	api.HandleFunc("/files/{id}", h.DeleteFile).Methods(http.MethodDelete)
	api.HandleFunc("/files/{id}/original", h.GetOriginal).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/files/{id}/thumbnail/{size}", h.GetThumbnail).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/thumbnails/stats", h.GetThumbnailStats).Methods(http.MethodGet)
}
