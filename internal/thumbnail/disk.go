package thumbnail

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"thumbnail-service/internal/filesystem"
	"thumbnail-service/internal/logging"
)

// ErrInvalidFileID is returned for identifiers that cannot be used as a file name.
var ErrInvalidFileID = errors.New("invalid file id")

const fileExt = ".webp"

// ValidateFileID rejects identifiers that would escape a size directory.
func ValidateFileID(fileID string) error {
	switch {
	case fileID == "", fileID == ".", fileID == "..":
		return fmt.Errorf("%w: %q", ErrInvalidFileID, fileID)
	case strings.ContainsAny(fileID, `/\`+"\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidFileID, fileID)
	}
	return nil
}

// EnsureDirs creates the per-size directories under root. It is safe to call
// on every start.
func EnsureDirs(root string) error {
	for _, size := range AllSizes() {
		dir := filepath.Join(root, size.DirName())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create thumbnail directory %s: %w", dir, err)
		}
	}
	return nil
}

// diskStore is the durable layer: one file per (file id, size).
type diskStore struct {
	root  string
	retry filesystem.RetryConfig
}

func newDiskStore(root string) *diskStore {
	return &diskStore{
		root:  root,
		retry: filesystem.DefaultRetryConfig(),
	}
}

func (d *diskStore) path(key CacheKey) string {
	return filepath.Join(d.root, key.Size.DirName(), key.FileID+fileExt)
}

// read returns the stored thumbnail. Any failure, including an empty file,
// reads as absent so the caller regenerates.
func (d *diskStore) read(key CacheKey) ([]byte, bool) {
	path := d.path(key)
	data, err := filesystem.ReadFileWithRetry(path, d.retry)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.Warn("Failed to read cached thumbnail %s, regenerating: %v", path, err)
		}
		return nil, false
	}
	if len(data) == 0 {
		logging.Debug("Ignoring empty thumbnail file %s", path)
		return nil, false
	}
	return data, true
}

func (d *diskStore) write(key CacheKey, data []byte) error {
	return filesystem.WriteFileAtomic(d.path(key), data, 0o644, d.retry)
}

func (d *diskStore) remove(key CacheKey) error {
	return filesystem.RemoveIfExists(d.path(key), d.retry)
}
