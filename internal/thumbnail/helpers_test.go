package thumbnail

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"thumbnail-service/internal/workers"

	"github.com/chai2010/webp"
	xwebp "golang.org/x/image/webp"
)

// createTestImage writes a width x height gradient in the format implied by
// the file extension (.jpg, .png, .gif or .webp).
func createTestImage(t *testing.T, dir, name string, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: 128,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	var err error
	switch filepath.Ext(name) {
	case ".png":
		err = png.Encode(&buf, img)
	case ".gif":
		err = gif.Encode(&buf, img, nil)
	case ".webp":
		err = webp.Encode(&buf, img, &webp.Options{Quality: 90})
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		t.Fatalf("failed to encode test image %s: %v", name, err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}
	return path
}

func createCorruptImage(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "corrupt.jpg")
	data := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x00}, 64)...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write corrupt image: %v", err)
	}
	return path
}

// webpDimensions decodes the header of an encoded WebP thumbnail.
func webpDimensions(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := xwebp.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("thumbnail is not valid WebP: %v", err)
	}
	return cfg.Width, cfg.Height
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	pool := workers.NewPool(2, 16)
	t.Cleanup(pool.Close)
	return NewEngine(ImagingRenderer{}, pool)
}

// countingGenerator wraps a Generator and counts invocations. When gate is
// non-nil every call blocks until it is closed.
type countingGenerator struct {
	next  Generator
	gate  chan struct{}
	calls atomic.Int64
}

func (c *countingGenerator) Generate(ctx context.Context, srcPath string, size Size) ([]byte, error) {
	c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	return c.next.Generate(ctx, srcPath, size)
}

func (c *countingGenerator) count() int64 {
	return c.calls.Load()
}

// generatorFunc adapts a function to the Generator interface.
type generatorFunc func(ctx context.Context, srcPath string, size Size) ([]byte, error)

func (f generatorFunc) Generate(ctx context.Context, srcPath string, size Size) ([]byte, error) {
	return f(ctx, srcPath, size)
}

// rendererFunc adapts a function to the Renderer interface.
type rendererFunc func(srcPath string, size Size) ([]byte, error)

func (f rendererFunc) Render(srcPath string, size Size) ([]byte, error) {
	return f(srcPath, size)
}

func newTestService(t *testing.T, cfg Config, gen Generator) *Service {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	svc, err := New(cfg, gen)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}
