// Package handlers provides HTTP request handlers for the thumbnail service API.
//
// It includes handlers for:
//   - Image upload, listing, download and deletion
//   - Thumbnails at the icon, preview and large sizes
//   - Thumbnail cache statistics
//   - Health checks and version information
package handlers
