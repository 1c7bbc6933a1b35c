package vips

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"thumbnail-service/internal/logging"
	"thumbnail-service/internal/thumbnail"

	govips "github.com/davidbyttow/govips/v2/vips"
)

// ErrNotInitialized is returned by Render before Init or after Shutdown.
var ErrNotInitialized = errors.New("libvips not initialized")

var (
	initMutex   sync.Mutex
	initialized bool
)

// Init starts libvips and routes its log output through the application
// logger at a matching verbosity. Repeated calls are no-ops.
func Init() error {
	initMutex.Lock()
	defer initMutex.Unlock()

	if initialized {
		return nil
	}

	level, handler := logSettings(logging.GetLevel())
	govips.LoggingSettings(handler, level)

	// Rendering is already parallelised by the worker pool, so libvips
	// itself runs single-threaded with a small operation cache.
	govips.Startup(&govips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	initialized = true
	logging.Info("libvips initialized (version: %s)", govips.Version)
	return nil
}

// Shutdown releases libvips.
func Shutdown() {
	initMutex.Lock()
	defer initMutex.Unlock()

	if initialized {
		govips.Shutdown()
		initialized = false
		logging.Info("libvips shutdown complete")
	}
}

// Available reports whether Init has run.
func Available() bool {
	initMutex.Lock()
	defer initMutex.Unlock()
	return initialized
}

func logSettings(level logging.LogLevel) (govips.LogLevel, govips.LoggingHandlerFunction) {
	forward := func(minLevel govips.LogLevel) govips.LoggingHandlerFunction {
		return func(domain string, lvl govips.LogLevel, msg string) {
			if lvl > minLevel {
				return
			}
			switch lvl {
			case govips.LogLevelError, govips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case govips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	}

	switch level {
	case logging.LevelDebug:
		return govips.LogLevelInfo, forward(govips.LogLevelDebug)
	case logging.LevelWarn:
		return govips.LogLevelError, forward(govips.LogLevelError)
	case logging.LevelError:
		return govips.LogLevelCritical, forward(govips.LogLevelCritical)
	default:
		return govips.LogLevelWarning, forward(govips.LogLevelWarning)
	}
}

// Renderer implements thumbnail.Renderer with libvips.
type Renderer struct {
	// Quality is the lossy WebP quality (0-100). Zero means thumbnail.DefaultQuality.
	Quality int
}

// Render implements thumbnail.Renderer. The header is read first to size the
// output exactly; the thumbnail loader then shrinks during decode.
func (r Renderer) Render(srcPath string, size thumbnail.Size) ([]byte, error) {
	if !Available() {
		return nil, ErrNotInitialized
	}

	origW, origH, err := orientedSize(srcPath)
	if err != nil {
		return nil, err
	}
	width, height := thumbnail.TargetDimensions(origW, origH, size.MaxDimension())
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %s: empty image (%dx%d)", thumbnail.ErrDecode, srcPath, origW, origH)
	}

	logging.Debug("Rendering %s thumbnail of %s with vips: %dx%d -> %dx%d",
		size, filepath.Base(srcPath), origW, origH, width, height)

	// SizeForce keeps the truncated dimensions instead of vips' own rounding.
	ref, err := govips.NewThumbnailWithSizeFromFile(srcPath, width, height, govips.InterestingNone, govips.SizeForce)
	if err != nil {
		return nil, fmt.Errorf("%w: thumbnail %s: %v", thumbnail.ErrDecode, srcPath, err)
	}
	defer ref.Close()

	params := govips.NewWebpExportParams()
	params.Quality = r.quality()
	params.StripMetadata = true

	data, _, err := ref.ExportWebp(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", thumbnail.ErrEncode, err)
	}
	return data, nil
}

// orientedSize returns the display dimensions of srcPath, swapping width and
// height when the EXIF orientation rotates by 90 degrees.
func orientedSize(srcPath string) (int, int, error) {
	ref, err := govips.LoadImageFromFile(srcPath, govips.NewImportParams())
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s: %v", thumbnail.ErrDecode, srcPath, err)
	}
	defer ref.Close()

	w, h := ref.Width(), ref.Height()
	if swapsAxes(ref.Orientation()) {
		w, h = h, w
	}
	return w, h, nil
}

// swapsAxes reports whether an EXIF orientation is a transpose or a
// 90/270 degree rotation.
func swapsAxes(orientation int) bool {
	return orientation >= 5 && orientation <= 8
}

func (r Renderer) quality() int {
	if r.Quality > 0 {
		return r.Quality
	}
	return thumbnail.DefaultQuality
}
