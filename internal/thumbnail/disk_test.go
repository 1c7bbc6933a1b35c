package thumbnail

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestValidateFileID(t *testing.T) {
	valid := []string{"abc123", "3f2b8c1e-9a6d-4c1b-8f0e-2d7a5b9c4e11", "file.name", "..hidden"}
	for _, id := range valid {
		if err := ValidateFileID(id); err != nil {
			t.Errorf("ValidateFileID(%q) error = %v", id, err)
		}
	}

	invalid := []string{"", ".", "..", "../etc/passwd", "a/b", `a\b`, "nul\x00byte"}
	for _, id := range invalid {
		if err := ValidateFileID(id); !errors.Is(err, ErrInvalidFileID) {
			t.Errorf("ValidateFileID(%q) error = %v, want ErrInvalidFileID", id, err)
		}
	}
}

func TestEnsureDirs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "thumbnails")

	for i := 0; i < 2; i++ {
		if err := EnsureDirs(root); err != nil {
			t.Fatalf("EnsureDirs() call %d error = %v", i+1, err)
		}
	}

	for _, size := range AllSizes() {
		info, err := os.Stat(filepath.Join(root, size.DirName()))
		if err != nil {
			t.Fatalf("size directory %s missing: %v", size.DirName(), err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", size.DirName())
		}
	}
}

func TestEnsureDirsFailsOnFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(root, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureDirs(root); err == nil {
		t.Error("EnsureDirs() succeeded beneath a regular file")
	}
}

func TestDiskStorePath(t *testing.T) {
	d := newDiskStore("/cache/thumbnails")
	tests := []struct {
		key  CacheKey
		want string
	}{
		{CacheKey{"abc123", SizeIcon}, "/cache/thumbnails/icon/abc123.webp"},
		{CacheKey{"abc123", SizePreview}, "/cache/thumbnails/preview/abc123.webp"},
		{CacheKey{"abc123", SizeLarge}, "/cache/thumbnails/large/abc123.webp"},
	}
	for _, tt := range tests {
		if got := d.path(tt.key); got != tt.want {
			t.Errorf("path(%v) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestDiskStoreRoundTrip(t *testing.T) {
	root := t.TempDir()
	if err := EnsureDirs(root); err != nil {
		t.Fatal(err)
	}
	d := newDiskStore(root)
	key := CacheKey{FileID: "abc123", Size: SizePreview}

	if _, ok := d.read(key); ok {
		t.Fatal("read() found a thumbnail that was never written")
	}

	want := []byte("RIFF....WEBP")
	if err := d.write(key, want); err != nil {
		t.Fatalf("write() error = %v", err)
	}
	got, ok := d.read(key)
	if !ok || string(got) != string(want) {
		t.Fatalf("read() = %q, %v; want %q, true", got, ok, want)
	}

	entries, _ := os.ReadDir(filepath.Join(root, SizePreview.DirName()))
	if len(entries) != 1 {
		t.Errorf("size directory holds %d entries after write, want 1 (no temp files)", len(entries))
	}

	for i := 0; i < 2; i++ {
		if err := d.remove(key); err != nil {
			t.Fatalf("remove() call %d error = %v", i+1, err)
		}
	}
	if _, ok := d.read(key); ok {
		t.Error("read() found a removed thumbnail")
	}
}

func TestDiskStoreTreatsBadFilesAsAbsent(t *testing.T) {
	root := t.TempDir()
	if err := EnsureDirs(root); err != nil {
		t.Fatal(err)
	}
	d := newDiskStore(root)

	empty := CacheKey{FileID: "empty", Size: SizeIcon}
	if err := os.WriteFile(d.path(empty), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := d.read(empty); ok {
		t.Error("read() returned an empty file as a hit")
	}

	dirKey := CacheKey{FileID: "isdir", Size: SizeIcon}
	if err := os.Mkdir(d.path(dirKey), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, ok := d.read(dirKey); ok {
		t.Error("read() returned a directory as a hit")
	}
}
