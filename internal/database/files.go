package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// InsertFile stores a new file record. CreatedAt is set to now when zero.
func (d *Database) InsertFile(ctx context.Context, file *File) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("insert_file", start, err) }()

	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO files (id, name, path, mime_type, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, file.ID, file.Name, file.Path, file.MimeType, file.Size, file.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert file %s: %w", file.ID, err)
	}
	return nil
}

// GetFile returns the record for id, or ErrNotFound.
func (d *Database) GetFile(ctx context.Context, id string) (*File, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_file", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var file File
	var createdAt int64
	err = d.db.QueryRowContext(ctx, `
		SELECT id, name, path, mime_type, size, created_at
		FROM files WHERE id = ?
	`, id).Scan(&file.ID, &file.Name, &file.Path, &file.MimeType, &file.Size, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, fmt.Errorf("file %s: %w", id, err)
	}
	if err != nil {
		return nil, err
	}

	file.CreatedAt = time.Unix(createdAt, 0)
	return &file, nil
}

// DeleteFile removes the record for id, or returns ErrNotFound.
func (d *Database) DeleteFile(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_file", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		err = ErrNotFound
		return fmt.Errorf("file %s: %w", id, err)
	}
	return nil
}

// ListFiles returns files newest first. limit is clamped to [1, 500] with a
// default of 100; a negative offset is treated as zero.
func (d *Database) ListFiles(ctx context.Context, limit, offset int) (*FileList, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_files", start, err) }()

	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	total, err := d.CountFiles(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, path, mime_type, size, created_at
		FROM files
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	list := &FileList{
		Items:      []File{},
		TotalItems: total,
		Limit:      limit,
		Offset:     offset,
	}
	for rows.Next() {
		var file File
		var createdAt int64
		if err = rows.Scan(&file.ID, &file.Name, &file.Path, &file.MimeType, &file.Size, &createdAt); err != nil {
			return nil, err
		}
		file.CreatedAt = time.Unix(createdAt, 0)
		list.Items = append(list.Items, file)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// CountFiles returns the number of stored files.
func (d *Database) CountFiles(ctx context.Context) (int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("count_files", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&count)
	return count, err
}
