package library

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"thumbnail-service/internal/database"
	"thumbnail-service/internal/thumbnail"
	"thumbnail-service/internal/workers"
)

type testEnv struct {
	lib      *Library
	db       *database.Database
	thumbs   *thumbnail.Service
	mediaDir string
}

func setupLibrary(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()

	root := t.TempDir()
	mediaDir := filepath.Join(root, "media")
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		t.Fatal(err)
	}

	db, err := database.New(context.Background(), filepath.Join(root, "test.db"))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	pool := workers.NewPool(2, 16)
	t.Cleanup(pool.Close)
	engine := thumbnail.NewEngine(thumbnail.ImagingRenderer{}, pool)

	thumbs, err := thumbnail.New(thumbnail.Config{Dir: filepath.Join(root, "thumbnails")}, engine)
	if err != nil {
		t.Fatalf("thumbnail.New() error = %v", err)
	}
	t.Cleanup(thumbs.Close)

	lib := New(Config{
		MediaDir:       mediaDir,
		MaxUploadBytes: maxUpload,
		ActiveWorkers:  engine.ActiveWorkers,
	}, db, thumbs)

	return &testEnv{lib: lib, db: db, thumbs: thumbs, mediaDir: mediaDir}
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSaveStoresOriginalAndPregenerates(t *testing.T) {
	env := setupLibrary(t, 0)
	data := pngBytes(t, 600, 300)

	// The declared type is wrong on purpose; detection wins.
	file, err := env.lib.Save(context.Background(), "holiday.png", "application/octet-stream", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if file.MimeType != "image/png" {
		t.Errorf("MimeType = %q, want image/png", file.MimeType)
	}
	if file.Name != "holiday.png" {
		t.Errorf("Name = %q, want holiday.png", file.Name)
	}
	if file.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", file.Size, len(data))
	}
	if filepath.Dir(file.Path) != env.mediaDir || !strings.HasSuffix(file.Path, ".png") {
		t.Errorf("Path = %q, want <media>/<id>.png", file.Path)
	}

	stored, err := os.ReadFile(file.Path)
	if err != nil || !bytes.Equal(stored, data) {
		t.Fatalf("original not stored intact: %v", err)
	}

	got, err := env.lib.Get(context.Background(), file.ID)
	if err != nil || got.Path != file.Path {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	env.thumbs.Wait()
	for _, size := range thumbnail.AllSizes() {
		if _, err := os.Stat(env.thumbs.Path(file.ID, size)); err != nil {
			t.Errorf("%s thumbnail not pre-generated: %v", size, err)
		}
	}
}

func TestSaveRejectsUnsupported(t *testing.T) {
	env := setupLibrary(t, 0)

	tests := []struct {
		name string
		data []byte
	}{
		{"text", []byte("definitely not an image")},
		{"empty", nil},
		{"bmp", append([]byte("BM"), make([]byte, 64)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.lib.Save(context.Background(), tt.name, "image/jpeg", bytes.NewReader(tt.data))
			if !errors.Is(err, ErrUnsupportedType) {
				t.Errorf("Save() error = %v, want ErrUnsupportedType", err)
			}
		})
	}

	entries, _ := os.ReadDir(env.mediaDir)
	if len(entries) != 0 {
		t.Errorf("media directory has %d entries after rejected uploads, want 0", len(entries))
	}
	if count, _ := env.db.CountFiles(context.Background()); count != 0 {
		t.Errorf("CountFiles() = %d after rejected uploads, want 0", count)
	}
}

func TestSaveRejectsTooLarge(t *testing.T) {
	data := pngBytes(t, 200, 200)
	env := setupLibrary(t, int64(len(data)-1))

	_, err := env.lib.Save(context.Background(), "big.png", "image/png", bytes.NewReader(data))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Save() error = %v, want ErrTooLarge", err)
	}
	entries, _ := os.ReadDir(env.mediaDir)
	if len(entries) != 0 {
		t.Errorf("media directory has %d entries after oversized upload, want 0", len(entries))
	}
}

func TestSaveAcceptsExactLimit(t *testing.T) {
	data := pngBytes(t, 50, 50)
	env := setupLibrary(t, int64(len(data)))

	if _, err := env.lib.Save(context.Background(), "fit.png", "image/png", bytes.NewReader(data)); err != nil {
		t.Fatalf("Save() at exact limit error = %v", err)
	}
	env.thumbs.Wait()
}

func TestThumbnail(t *testing.T) {
	env := setupLibrary(t, 0)
	file, err := env.lib.Save(context.Background(), "wide.png", "image/png", bytes.NewReader(pngBytes(t, 1000, 500)))
	if err != nil {
		t.Fatal(err)
	}
	env.thumbs.Wait()

	data, err := env.lib.Thumbnail(context.Background(), file.ID, thumbnail.SizeIcon)
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("Thumbnail() returned no bytes")
	}

	if _, err := env.lib.Thumbnail(context.Background(), "missing", thumbnail.SizeIcon); !errors.Is(err, ErrNotFound) {
		t.Errorf("Thumbnail() for unknown id error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	env := setupLibrary(t, 0)
	ctx := context.Background()

	file, err := env.lib.Save(ctx, "gone.png", "image/png", bytes.NewReader(pngBytes(t, 300, 300)))
	if err != nil {
		t.Fatal(err)
	}
	env.thumbs.Wait()

	if err := env.lib.Delete(ctx, file.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := env.lib.Get(ctx, file.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if _, err := os.Stat(file.Path); !os.IsNotExist(err) {
		t.Errorf("original still on disk: %v", err)
	}
	for _, size := range thumbnail.AllSizes() {
		if _, err := os.Stat(env.thumbs.Path(file.ID, size)); !os.IsNotExist(err) {
			t.Errorf("%s thumbnail still on disk: %v", size, err)
		}
	}

	if err := env.lib.Delete(ctx, file.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestListAndStats(t *testing.T) {
	env := setupLibrary(t, 0)
	ctx := context.Background()

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		if _, err := env.lib.Save(ctx, name, "image/png", bytes.NewReader(pngBytes(t, 40, 40))); err != nil {
			t.Fatal(err)
		}
	}
	env.thumbs.Wait()

	list, err := env.lib.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list.TotalItems != 3 || len(list.Items) != 2 {
		t.Errorf("List() = %d items of %d, want 2 of 3", len(list.Items), list.TotalItems)
	}

	stats := env.lib.GetStats()
	if stats.StoredFiles != 3 {
		t.Errorf("StoredFiles = %d, want 3", stats.StoredFiles)
	}
	if stats.CacheMaxBytes != thumbnail.DefaultMaxWeight {
		t.Errorf("CacheMaxBytes = %d, want %d", stats.CacheMaxBytes, thumbnail.DefaultMaxWeight)
	}
	if stats.CacheWeightBytes > stats.CacheMaxBytes {
		t.Errorf("CacheWeightBytes %d exceeds max", stats.CacheWeightBytes)
	}
	if got := env.lib.ThumbnailStats(); got.MaxWeight != stats.CacheMaxBytes {
		t.Errorf("ThumbnailStats().MaxWeight = %d, want %d", got.MaxWeight, stats.CacheMaxBytes)
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"  photo.jpg ", "photo.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\cat.png`, "cat.png"},
		{"", "fallback.png"},
		{"/", "fallback.png"},
		{".", "fallback.png"},
	}
	for _, tt := range tests {
		if got := cleanName(tt.in, "fallback.png"); got != tt.want {
			t.Errorf("cleanName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
