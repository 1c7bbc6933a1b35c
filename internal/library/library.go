package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"thumbnail-service/internal/database"
	"thumbnail-service/internal/filesystem"
	"thumbnail-service/internal/logging"
	"thumbnail-service/internal/metrics"
	"thumbnail-service/internal/thumbnail"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrUnsupportedType is returned for uploads that are not a supported image.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned for uploads above the configured limit.
	ErrTooLarge = errors.New("upload too large")
	// ErrNotFound is returned for unknown file ids.
	ErrNotFound = database.ErrNotFound
)

// DefaultMaxUploadBytes bounds an upload when Config.MaxUploadBytes is unset.
const DefaultMaxUploadBytes int64 = 64 << 20

// sniffLen is how much of an upload is inspected to detect its type.
const sniffLen = 3072

// Thumbnails is the part of the thumbnail cache the library drives.
type Thumbnails interface {
	GetThumbnail(ctx context.Context, fileID string, size thumbnail.Size, originalPath string) ([]byte, error)
	GenerateAllSizesBackground(fileID, originalPath string)
	DeleteThumbnails(fileID string) error
	Stats() thumbnail.Stats
}

// Store is the file record storage.
type Store interface {
	InsertFile(ctx context.Context, file *database.File) error
	GetFile(ctx context.Context, id string) (*database.File, error)
	DeleteFile(ctx context.Context, id string) error
	ListFiles(ctx context.Context, limit, offset int) (*database.FileList, error)
	CountFiles(ctx context.Context) (int, error)
}

// Config configures a Library.
type Config struct {
	// MediaDir holds the uploaded originals.
	MediaDir string
	// MaxUploadBytes rejects larger uploads. Zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64
	// ActiveWorkers reports busy render workers for GetStats. Optional.
	ActiveWorkers func() int
}

// Library ties file records, originals on disk and thumbnails together.
type Library struct {
	store      Store
	thumbnails Thumbnails
	mediaDir   string
	maxBytes   int64
	active     func() int
	retry      filesystem.RetryConfig
}

// New creates a Library.
func New(cfg Config, store Store, thumbnails Thumbnails) *Library {
	maxBytes := cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Library{
		store:      store,
		thumbnails: thumbnails,
		mediaDir:   cfg.MediaDir,
		maxBytes:   maxBytes,
		active:     cfg.ActiveWorkers,
		retry:      filesystem.DefaultRetryConfig(),
	}
}

// MaxUploadBytes returns the upload size limit.
func (l *Library) MaxUploadBytes() int64 {
	return l.maxBytes
}

// Save stores an uploaded image. The content type is detected from the data;
// declaredMIME is only used for logging. Unsupported content is rejected
// before anything is written.
func (l *Library) Save(ctx context.Context, name, declaredMIME string, r io.Reader) (*database.File, error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	header = header[:n]

	detected := mimetype.Detect(header)
	mimeType := detected.String()
	if !thumbnail.IsSupportedImage(mimeType) {
		metrics.UploadsTotal.WithLabelValues("unsupported").Inc()
		logging.Debug("Rejected upload %q: detected %s, declared %q", name, mimeType, declaredMIME)
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	if declaredMIME != "" && !strings.EqualFold(declaredMIME, mimeType) {
		logging.Debug("Upload %q declared as %q but detected as %s", name, declaredMIME, mimeType)
	}

	id := uuid.NewString()
	path := filepath.Join(l.mediaDir, id+detected.Extension())

	// One byte past the limit tells an exact fit from an overflow.
	body := io.LimitReader(io.MultiReader(bytes.NewReader(header), r), l.maxBytes+1)
	size, err := filesystem.WriteStreamAtomic(path, body, 0o644, l.retry)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if size > l.maxBytes {
		l.removeOriginal(path)
		metrics.UploadsTotal.WithLabelValues("too_large").Inc()
		return nil, fmt.Errorf("%w: limit is %s", ErrTooLarge, humanize.IBytes(uint64(l.maxBytes)))
	}

	file := &database.File{
		ID:        id,
		Name:      cleanName(name, id+detected.Extension()),
		Path:      path,
		MimeType:  mimeType,
		Size:      size,
		CreatedAt: time.Now(),
	}
	if err := l.store.InsertFile(ctx, file); err != nil {
		l.removeOriginal(path)
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	metrics.UploadBytes.Add(float64(size))
	logging.Info("Stored upload %q as %s (%s, %s)", file.Name, id, mimeType, humanize.IBytes(uint64(size)))

	l.thumbnails.GenerateAllSizesBackground(id, path)
	return file, nil
}

// Get returns the record for id.
func (l *Library) Get(ctx context.Context, id string) (*database.File, error) {
	return l.store.GetFile(ctx, id)
}

// List returns one page of files, newest first.
func (l *Library) List(ctx context.Context, limit, offset int) (*database.FileList, error) {
	return l.store.ListFiles(ctx, limit, offset)
}

// Delete removes the record, the original and all thumbnails of id.
// Cleanup failures after the record is gone are logged and returned.
func (l *Library) Delete(ctx context.Context, id string) error {
	file, err := l.store.GetFile(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			metrics.DeletionsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	if err := l.store.DeleteFile(ctx, id); err != nil {
		if !errors.Is(err, ErrNotFound) {
			metrics.DeletionsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	var errs []error
	if err := filesystem.RemoveIfExists(file.Path, l.retry); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove original %s: %w", file.Path, err))
	}
	if err := l.thumbnails.DeleteThumbnails(id); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		metrics.DeletionsTotal.WithLabelValues("partial").Inc()
		logging.Warn("Deleted file %s with cleanup errors: %v", id, err)
		return err
	}

	metrics.DeletionsTotal.WithLabelValues("success").Inc()
	logging.Info("Deleted file %s (%s)", id, file.Name)
	return nil
}

// Thumbnail returns the encoded thumbnail of id at size.
func (l *Library) Thumbnail(ctx context.Context, id string, size thumbnail.Size) ([]byte, error) {
	file, err := l.store.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.thumbnails.GetThumbnail(ctx, file.ID, size, file.Path)
}

// ThumbnailStats reports the thumbnail memory cache.
func (l *Library) ThumbnailStats() thumbnail.Stats {
	return l.thumbnails.Stats()
}

// GetStats implements metrics.StatsProvider.
func (l *Library) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := l.store.CountFiles(ctx)
	if err != nil {
		logging.Warn("Failed to count files for metrics: %v", err)
	}

	if u, ok := l.store.(interface{ UpdateDBMetrics() }); ok {
		u.UpdateDBMetrics()
	}

	cache := l.thumbnails.Stats()
	stats := metrics.Stats{
		StoredFiles:      count,
		CacheEntries:     cache.ResidentEntries,
		CacheWeightBytes: cache.ResidentWeight,
		CacheMaxBytes:    cache.MaxWeight,
	}
	if l.active != nil {
		stats.ActiveWorkers = l.active()
	}
	return stats
}

func (l *Library) removeOriginal(path string) {
	if err := filesystem.RemoveIfExists(path, l.retry); err != nil {
		logging.Warn("Failed to remove original %s: %v", path, err)
	}
}

// cleanName keeps the base name of a client-supplied file name.
func cleanName(name, fallback string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return fallback
	}
	return name
}
