package thumbnail

import (
	"mime"
	"strings"
)

var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// IsSupportedImage reports whether a thumbnail can be generated for content
// of the given MIME type. Parameters such as "; charset=binary" are ignored.
func IsSupportedImage(mimeType string) bool {
	mediaType := strings.TrimSpace(mimeType)
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	return supportedImageTypes[strings.ToLower(mediaType)]
}
