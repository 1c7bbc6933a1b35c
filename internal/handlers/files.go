package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/gorilla/mux"

	"thumbnail-service/internal/filesystem"
	"thumbnail-service/internal/library"
	"thumbnail-service/internal/logging"
	"thumbnail-service/internal/thumbnail"
)

const (
	// uploadField is the multipart form field holding the image.
	uploadField = "file"
	// multipartOverhead allows for boundaries and part headers on top of
	// the upload limit.
	multipartOverhead = 1 << 20

	thumbnailCacheControl = "private, max-age=86400"
)

// UploadFile stores a multipart image upload and starts its thumbnails.
func (h *Handlers) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.files.MaxUploadBytes()+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		writeJSONError(w, "Expected multipart/form-data", http.StatusBadRequest)
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeJSONError(w, "Missing \""+uploadField+"\" field", http.StatusBadRequest)
			return
		}
		if err != nil {
			writeUploadError(w, err)
			return
		}
		if part.FormName() != uploadField {
			part.Close()
			continue
		}

		file, err := h.files.Save(r.Context(), part.FileName(), part.Header.Get("Content-Type"), part)
		part.Close()
		if err != nil {
			writeUploadError(w, err)
			return
		}

		w.Header().Set("Location", "/api/files/"+file.ID)
		writeJSONStatusCode(w, http.StatusCreated, file)
		return
	}
}

func writeUploadError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, library.ErrUnsupportedType):
		writeJSONError(w, err.Error(), http.StatusUnsupportedMediaType)
	case errors.Is(err, library.ErrTooLarge), errors.As(err, &maxBytesErr):
		writeJSONError(w, "Upload too large", http.StatusRequestEntityTooLarge)
	default:
		logging.Error("Upload failed: %v", err)
		writeJSONError(w, "Failed to store upload", http.StatusInternalServerError)
	}
}

// ListFiles returns one page of uploaded files.
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeJSONError(w, "Invalid limit", http.StatusBadRequest)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeJSONError(w, "Invalid offset", http.StatusBadRequest)
		return
	}

	list, err := h.files.List(r.Context(), limit, offset)
	if err != nil {
		logging.Error("Failed to list files: %v", err)
		writeJSONError(w, "Failed to list files", http.StatusInternalServerError)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, list)
}

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// GetFile returns the record of one file.
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	file, err := h.files.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, file)
}

// DeleteFile removes a file with its original and thumbnails.
func (h *Handlers) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.files.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeLookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetOriginal serves the uploaded image.
func (h *Handlers) GetOriginal(w http.ResponseWriter, r *http.Request) {
	file, err := h.files.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeLookupError(w, err)
		return
	}

	info, err := filesystem.StatWithRetry(file.Path, filesystem.DefaultRetryConfig())
	if err == nil {
		var f *os.File
		if f, err = os.Open(file.Path); err == nil {
			defer f.Close()
			w.Header().Set("Content-Type", file.MimeType)
			w.Header().Set("Cache-Control", "private, max-age=3600")
			http.ServeContent(w, r, file.Name, info.ModTime(), f)
			return
		}
	}

	if errors.Is(err, os.ErrNotExist) {
		logging.Warn("Original of %s missing at %s", file.ID, file.Path)
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}
	logging.Error("Failed to open original %s: %v", file.Path, err)
	writeJSONError(w, "Failed to read file", http.StatusInternalServerError)
}

// GetThumbnail serves a WebP thumbnail, generating it on first request.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	size, err := thumbnail.ParseSize(vars["size"])
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := h.files.Thumbnail(r.Context(), vars["id"], size)
	if err != nil {
		switch {
		case errors.Is(err, library.ErrNotFound), errors.Is(err, thumbnail.ErrInvalidFileID):
			writeJSONError(w, "File not found", http.StatusNotFound)
		case errors.Is(err, context.Canceled):
			logging.Debug("Thumbnail request for %s/%s cancelled", vars["id"], size)
		case errors.Is(err, thumbnail.ErrGenerationFailed):
			logging.Warn("Thumbnail %s/%s failed: %v", vars["id"], size, err)
			writeJSONError(w, "Failed to generate thumbnail", http.StatusInternalServerError)
		default:
			logging.Error("Thumbnail %s/%s: %v", vars["id"], size, err)
			writeJSONError(w, "Failed to load thumbnail", http.StatusInternalServerError)
		}
		return
	}

	etag := thumbnailETag(data)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", thumbnailCacheControl)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write thumbnail %s/%s: %v", vars["id"], size, err)
	}
}

func thumbnailETag(data []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(data), 16) + `"`
}

// GetThumbnailStats reports the thumbnail memory cache.
func (h *Handlers) GetThumbnailStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatusCode(w, http.StatusOK, h.files.ThumbnailStats())
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, library.ErrNotFound) {
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}
	logging.Error("File request failed: %v", err)
	writeJSONError(w, "Internal server error", http.StatusInternalServerError)
}
