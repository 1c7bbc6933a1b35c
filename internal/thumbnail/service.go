package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"thumbnail-service/internal/logging"
	"thumbnail-service/internal/metrics"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/singleflight"
)

// ErrGenerationFailed is returned by GetThumbnail when no usable bytes could
// be produced. It wraps the underlying generation error.
var ErrGenerationFailed = errors.New("thumbnail generation failed")

const (
	// DefaultTTL bounds how long a thumbnail stays in memory.
	DefaultTTL = time.Hour
	// DefaultMaxWeight is the default memory budget in bytes.
	DefaultMaxWeight int64 = 256 << 20

	// assumed average thumbnail size, used to size the admission counters
	avgEntryWeight = 16 << 10
)

// CacheKey identifies one thumbnail.
type CacheKey struct {
	FileID string
	Size   Size
}

func (k CacheKey) String() string {
	return k.Size.DirName() + "/" + k.FileID
}

// Config holds the construction parameters of a Service.
type Config struct {
	// Dir is the root of the on-disk thumbnail tree.
	Dir string
	// MaxWeight is the memory budget in bytes.
	MaxWeight int64
	// TTL is the maximum memory residency of an entry.
	TTL time.Duration
	// MaxEntries is accepted for configuration compatibility and ignored:
	// thumbnails differ in size by an order of magnitude, so the bound is
	// enforced on weight only.
	MaxEntries int
	// Backpressure, when set, is consulted before each background render.
	// Request-driven generation never waits on it.
	Backpressure Backpressure
}

// Backpressure pauses background work. WaitIfPaused returns false when the
// work should be abandoned.
type Backpressure interface {
	WaitIfPaused() bool
}

// Stats describes the memory cache.
type Stats struct {
	ResidentEntries int   `json:"residentEntries"`
	ResidentWeight  int64 `json:"residentWeightBytes"`
	MaxWeight       int64 `json:"maxWeightBytes"`
}

// entry is what the memory cache stores. The key travels with the bytes so
// eviction callbacks can update the resident accounting.
type entry struct {
	key  CacheKey
	data []byte
}

func (e *entry) weight() int64 {
	return weightOf(e.data)
}

func weightOf(data []byte) int64 {
	if n := int64(len(data)); n < math.MaxUint32 {
		return n
	}
	return math.MaxUint32
}

// Service is the thumbnail cache. It is safe for concurrent use and is meant
// to be created once and shared.
type Service struct {
	cfg  Config
	gen  Generator
	disk *diskStore

	cache    *ristretto.Cache[string, *entry]
	resident *xsync.Map[CacheKey, *entry]
	weight   atomic.Int64

	flight singleflight.Group
	// epochs counts deletions per key while loads for it are in flight.
	epochs *xsync.Map[CacheKey, loadEpoch]

	mu         sync.Mutex
	closed     bool
	background sync.WaitGroup
}

// loadEpoch is bumped by DeleteThumbnails. A load that sees a different
// epoch at the end than at the start must not leave anything behind.
type loadEpoch struct {
	epoch uint64
	loads int
}

// New creates the per-size directories and the memory cache.
func New(cfg Config, gen Generator) (*Service, error) {
	if gen == nil {
		return nil, errors.New("thumbnail: nil generator")
	}
	if cfg.Dir == "" {
		return nil, errors.New("thumbnail: empty storage directory")
	}
	if cfg.MaxWeight <= 0 {
		cfg.MaxWeight = DefaultMaxWeight
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxEntries > 0 {
		logging.Debug("Thumbnail cache: max entries %d ignored, bounding by weight (%d bytes)", cfg.MaxEntries, cfg.MaxWeight)
	}

	if err := EnsureDirs(cfg.Dir); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:      cfg,
		gen:      gen,
		disk:     newDiskStore(cfg.Dir),
		resident: xsync.NewMap[CacheKey, *entry](),
		epochs:   xsync.NewMap[CacheKey, loadEpoch](),
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, *entry]{
		NumCounters:        numCounters(cfg.MaxWeight),
		MaxCost:            cfg.MaxWeight,
		BufferItems:        64,
		IgnoreInternalCost: true,
		OnEvict:            s.onRemoved,
		OnReject:           s.onRemoved,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail memory cache: %w", err)
	}
	s.cache = cache

	metrics.ThumbnailCacheMaxWeight.Set(float64(cfg.MaxWeight))
	logging.Info("Thumbnail cache ready: dir=%s, max weight=%d bytes, ttl=%v", cfg.Dir, cfg.MaxWeight, cfg.TTL)
	return s, nil
}

func numCounters(maxWeight int64) int64 {
	n := maxWeight / avgEntryWeight * 10
	switch {
	case n < 1000:
		return 1000
	case n > 10_000_000:
		return 10_000_000
	}
	return n
}

// GetThumbnail returns the thumbnail of originalPath at the given size,
// generating it on first use. Concurrent calls for the same file and size
// share one load; the load is not cancelled when a single caller's ctx is.
func (s *Service) GetThumbnail(ctx context.Context, fileID string, size Size, originalPath string) ([]byte, error) {
	if err := ValidateFileID(fileID); err != nil {
		return nil, err
	}
	key := CacheKey{FileID: fileID, Size: size}

	if data, ok := s.lookup(key); ok {
		metrics.ThumbnailCacheHits.WithLabelValues("memory").Inc()
		return data, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	v, err, shared := s.flight.Do(key.String(), func() (interface{}, error) {
		epoch := s.beginLoad(key)
		defer s.endLoad(key)
		return s.load(loadCtx, key, originalPath, epoch)
	})
	if shared {
		metrics.ThumbnailSharedLoads.Inc()
	}

	data, _ := v.([]byte)
	if len(data) == 0 {
		if err == nil {
			err = errors.New("empty result")
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrGenerationFailed, key, err)
	}
	return data, nil
}

// load runs once per key at a time. A failed generation yields the empty
// sentinel together with the cause; the sentinel is never stored. epoch comes
// from the caller's beginLoad, and nothing is kept if a delete moves it.
func (s *Service) load(ctx context.Context, key CacheKey, originalPath string, epoch uint64) ([]byte, error) {
	if data, ok := s.lookup(key); ok {
		return data, nil
	}

	if data, ok := s.disk.read(key); ok {
		logging.Debug("Thumbnail disk hit: %s", key)
		metrics.ThumbnailCacheHits.WithLabelValues("disk").Inc()
		s.store(key, data)
		if s.deletedSince(key, epoch) {
			s.dropMemory(key)
		}
		return data, nil
	}

	metrics.ThumbnailCacheMisses.Inc()
	data, err := s.gen.Generate(ctx, originalPath, key.Size)
	if err != nil || len(data) == 0 {
		logging.Warn("Thumbnail generation failed for %s (%s): %v", key, originalPath, err)
		return []byte{}, err
	}

	if s.deletedSince(key, epoch) {
		logging.Debug("Thumbnail %s deleted during generation, not persisting", key)
		return data, nil
	}
	if err := s.disk.write(key, data); err != nil {
		metrics.ThumbnailPersistErrors.Inc()
		logging.Warn("Failed to persist thumbnail %s: %v", key, err)
	}
	s.store(key, data)

	// DeleteThumbnails bumps the epoch before removing files, so either it
	// sees what was just written or this check sees the bump.
	if s.deletedSince(key, epoch) {
		s.discard(key)
	}
	return data, nil
}

// beginLoad registers an in-flight load of key and returns its epoch.
func (s *Service) beginLoad(key CacheKey) uint64 {
	v, _ := s.epochs.Compute(key, func(old loadEpoch, _ bool) (loadEpoch, xsync.ComputeOp) {
		old.loads++
		return old, xsync.UpdateOp
	})
	return v.epoch
}

func (s *Service) endLoad(key CacheKey) {
	s.epochs.Compute(key, func(old loadEpoch, loaded bool) (loadEpoch, xsync.ComputeOp) {
		if !loaded {
			return old, xsync.CancelOp
		}
		old.loads--
		if old.loads <= 0 {
			return old, xsync.DeleteOp
		}
		return old, xsync.UpdateOp
	})
}

// bumpEpoch marks in-flight loads of key as stale. Keys without loads have
// no entry and need none.
func (s *Service) bumpEpoch(key CacheKey) {
	s.epochs.Compute(key, func(old loadEpoch, loaded bool) (loadEpoch, xsync.ComputeOp) {
		if !loaded {
			return old, xsync.CancelOp
		}
		old.epoch++
		return old, xsync.UpdateOp
	})
}

func (s *Service) deletedSince(key CacheKey, epoch uint64) bool {
	v, ok := s.epochs.Load(key)
	return ok && v.epoch != epoch
}

// discard removes what a stale load left on disk and in memory.
func (s *Service) discard(key CacheKey) {
	if err := s.disk.remove(key); err != nil {
		logging.Warn("Failed to remove stale thumbnail %s: %v", key, err)
	}
	s.dropMemory(key)
}

func (s *Service) lookup(key CacheKey) ([]byte, bool) {
	e, ok := s.cache.Get(key.String())
	if !ok || e == nil {
		return nil, false
	}
	return e.data, true
}

func (s *Service) store(key CacheKey, data []byte) {
	if len(data) == 0 {
		return
	}
	e := &entry{key: key, data: data}

	s.track(e)
	if !s.cache.SetWithTTL(key.String(), e, e.weight(), s.cfg.TTL) {
		s.untrack(e)
	}
}

// track records e as resident, replacing any previous entry for its key.
// It runs before the cache sees e so a rejection callback always finds it.
func (s *Service) track(e *entry) {
	s.resident.Compute(e.key, func(old *entry, loaded bool) (*entry, xsync.ComputeOp) {
		if loaded {
			s.weight.Add(-old.weight())
		}
		s.weight.Add(e.weight())
		return e, xsync.UpdateOp
	})
}

// untrack forgets e unless it has already been replaced.
func (s *Service) untrack(e *entry) {
	s.resident.Compute(e.key, func(old *entry, loaded bool) (*entry, xsync.ComputeOp) {
		if !loaded || old != e {
			return old, xsync.CancelOp
		}
		s.weight.Add(-old.weight())
		return nil, xsync.DeleteOp
	})
}

func (s *Service) onRemoved(item *ristretto.Item[*entry]) {
	if item != nil && item.Value != nil {
		s.untrack(item.Value)
	}
}

// dropMemory removes the memory entry for key.
func (s *Service) dropMemory(key CacheKey) {
	s.resident.Compute(key, func(old *entry, loaded bool) (*entry, xsync.ComputeOp) {
		if !loaded {
			return old, xsync.CancelOp
		}
		s.weight.Add(-old.weight())
		return nil, xsync.DeleteOp
	})
	s.cache.Del(key.String())
}

// GenerateAllSizesBackground pre-renders every size of a newly stored image
// to disk. It returns immediately; failures are only logged.
func (s *Service) GenerateAllSizesBackground(fileID, originalPath string) {
	if err := ValidateFileID(fileID); err != nil {
		logging.Warn("Skipping background thumbnail generation: %v", err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		logging.Debug("Thumbnail cache closed, not generating %s in background", fileID)
		return
	}
	s.background.Add(1)
	s.mu.Unlock()
	metrics.ThumbnailBackgroundInFlight.Inc()

	// Registered up front so a deletion of any size stops the whole run.
	sizes := AllSizes()
	epochs := make([]uint64, len(sizes))
	for i, size := range sizes {
		epochs[i] = s.beginLoad(CacheKey{FileID: fileID, Size: size})
	}

	go func() {
		defer s.background.Done()
		defer metrics.ThumbnailBackgroundInFlight.Dec()
		defer func() {
			for _, size := range sizes {
				s.endLoad(CacheKey{FileID: fileID, Size: size})
			}
		}()

		start := time.Now()
		ctx := context.Background()
		generated := 0

		for i, size := range sizes {
			if s.cfg.Backpressure != nil && !s.cfg.Backpressure.WaitIfPaused() {
				logging.Debug("Background thumbnails for %s abandoned after %d sizes", fileID, generated)
				return
			}

			key := CacheKey{FileID: fileID, Size: size}
			epoch := epochs[i]
			if s.deletedSince(key, epoch) {
				logging.Debug("Background thumbnails for %s stopped: deleted", fileID)
				return
			}
			v, err, _ := s.flight.Do(key.String(), func() (interface{}, error) {
				return s.load(ctx, key, originalPath, epoch)
			})
			if data, _ := v.([]byte); len(data) == 0 {
				metrics.ThumbnailBackgroundGenerations.WithLabelValues("error").Inc()
				logging.Warn("Background thumbnail generation failed for %s: %v", key, err)
				continue
			}
			metrics.ThumbnailBackgroundGenerations.WithLabelValues("success").Inc()
			generated++
		}

		logging.Debug("Background thumbnails for %s: %d/%d sizes in %v",
			fileID, generated, len(sizes), time.Since(start))
	}()
}

// DeleteThumbnails removes every size of fileID from disk and memory.
// Missing thumbnails are not an error.
func (s *Service) DeleteThumbnails(fileID string) error {
	if err := ValidateFileID(fileID); err != nil {
		return err
	}

	var errs []error
	for _, size := range AllSizes() {
		key := CacheKey{FileID: fileID, Size: size}
		s.bumpEpoch(key)
		if err := s.disk.remove(key); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove thumbnail %s: %w", key, err))
		}
		s.dropMemory(key)
		s.flight.Forget(key.String())
	}

	metrics.ThumbnailInvalidations.Inc()
	return errors.Join(errs...)
}

// Stats reports the memory cache occupancy.
func (s *Service) Stats() Stats {
	return Stats{
		ResidentEntries: s.resident.Size(),
		ResidentWeight:  s.weight.Load(),
		MaxWeight:       s.cfg.MaxWeight,
	}
}

// Path returns the on-disk location of a thumbnail.
func (s *Service) Path(fileID string, size Size) string {
	return s.disk.path(CacheKey{FileID: fileID, Size: size})
}

// Wait blocks until all background generations have finished.
func (s *Service) Wait() {
	s.background.Wait()
}

// Close stops accepting background work, waits for what is running and
// releases the memory cache. Later calls are no-ops.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.Wait()
	s.cache.Close()
}
