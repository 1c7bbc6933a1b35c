package database

import "time"

// File is an uploaded original.
type File struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	MimeType  string    `json:"mimeType"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// FileList is one page of files.
type FileList struct {
	Items      []File `json:"items"`
	TotalItems int    `json:"totalItems"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}
