package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"thumbnail-service/internal/logging"
	"thumbnail-service/internal/metrics"
	"thumbnail-service/internal/workers"

	// Decoders for formats imaging does not register itself.
	_ "golang.org/x/image/webp"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Generation errors. Callers distinguish bad input (ErrDecode) from
// infrastructure failure (ErrTaskFailed) with errors.Is.
var (
	ErrDecode     = errors.New("failed to decode source image")
	ErrEncode     = errors.New("failed to encode thumbnail")
	ErrTaskFailed = workers.ErrTaskFailed
)

// DefaultQuality is the lossy WebP quality used by ImagingRenderer.
const DefaultQuality = 80

// Generator produces encoded thumbnail bytes for a source image.
type Generator interface {
	Generate(ctx context.Context, srcPath string, size Size) ([]byte, error)
}

// Renderer performs the CPU-bound decode, resample and encode steps.
type Renderer interface {
	Render(srcPath string, size Size) ([]byte, error)
}

// TargetDimensions scales width x height so the longer side equals maxDim.
// The shorter side is truncated, never rounded up, and is at least 1.
func TargetDimensions(width, height, maxDim int) (int, int) {
	if width <= 0 || height <= 0 || maxDim <= 0 {
		return 0, 0
	}

	var w, h int
	if width >= height {
		w = maxDim
		h = int(int64(height) * int64(maxDim) / int64(width))
	} else {
		h = maxDim
		w = int(int64(width) * int64(maxDim) / int64(height))
	}

	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// ImagingRenderer renders with the pure-Go imaging library and encodes WebP
// through libwebp.
type ImagingRenderer struct {
	// Quality is the lossy WebP quality (0-100). Zero means DefaultQuality.
	Quality float32
}

// Render implements Renderer.
func (r ImagingRenderer) Render(srcPath string, size Size) ([]byte, error) {
	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, srcPath, err)
	}

	bounds := img.Bounds()
	width, height := TargetDimensions(bounds.Dx(), bounds.Dy(), size.MaxDimension())
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %s: empty image (%dx%d)", ErrDecode, srcPath, bounds.Dx(), bounds.Dy())
	}

	logging.Debug("Rendering %s thumbnail of %s: %dx%d -> %dx%d",
		size, srcPath, bounds.Dx(), bounds.Dy(), width, height)

	thumb := imaging.Resize(img, width, height, size.Filter())

	quality := r.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, thumb, &webp.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// Engine runs a Renderer on a dedicated worker pool.
type Engine struct {
	renderer Renderer
	pool     *workers.Pool
}

// NewEngine creates an Engine. The pool is shared, not owned: the caller
// closes it after the Engine is no longer used.
func NewEngine(renderer Renderer, pool *workers.Pool) *Engine {
	if renderer == nil {
		renderer = ImagingRenderer{}
	}
	return &Engine{renderer: renderer, pool: pool}
}

// ActiveWorkers returns the number of renders currently executing.
func (e *Engine) ActiveWorkers() int {
	return e.pool.Active()
}

// Generate implements Generator. The calling goroutine only waits for the
// render to complete.
func (e *Engine) Generate(ctx context.Context, srcPath string, size Size) ([]byte, error) {
	start := time.Now()

	data, err := e.pool.Submit(ctx, func() ([]byte, error) {
		return e.renderer.Render(srcPath, size)
	})
	if err == nil && len(data) == 0 {
		err = fmt.Errorf("%w: renderer produced no output", ErrEncode)
	}

	metrics.ThumbnailGenerationDuration.WithLabelValues(size.String()).Observe(time.Since(start).Seconds())
	metrics.ThumbnailGenerationsTotal.WithLabelValues(size.String(), generationStatus(err)).Inc()

	if err != nil {
		return nil, err
	}

	logging.Debug("Generated %s thumbnail for %s in %v (%d bytes)", size, srcPath, time.Since(start), len(data))
	return data, nil
}

func generationStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrDecode):
		return "error_decode"
	case errors.Is(err, ErrEncode):
		return "error_encode"
	default:
		return "error_task"
	}
}
