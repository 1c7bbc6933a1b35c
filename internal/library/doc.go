// Package library manages uploaded originals and their thumbnails.
//
// Uploads are sniffed for their real content type, stored under the media
// directory with a generated id, recorded in the database and handed to the
// thumbnail cache for background pre-generation. Deletion removes the
// record, the original and every cached thumbnail.
package library
