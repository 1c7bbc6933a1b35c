package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"thumbnail-service/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// setupTestDB creates a database in a temporary directory.
func setupTestDB(t *testing.T) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "files.db")

	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopening an existing database keeps the schema.
	db, err = New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()
}

func TestNewMissingDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing", "sub", "files.db")
	if db, err := New(context.Background(), dbPath); err == nil {
		db.Close()
		t.Error("New() succeeded in a directory that does not exist")
	}
}

func TestRecordQuery(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status string
	}{
		{"success", nil, "success"},
		{"not found counts as success", ErrNotFound, "success"},
		{"failure", errors.New("disk I/O error"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := metrics.DBQueryTotal.WithLabelValues("test_record_query", tt.status)
			before := testutil.ToFloat64(counter)

			recordQuery("test_record_query", time.Now(), tt.err)

			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("%s counter increased by %v, want 1", tt.status, got)
			}
		})
	}
}

func TestUpdateDBMetrics(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.CountFiles(context.Background()); err != nil {
		t.Fatal(err)
	}
	db.UpdateDBMetrics()
	if got := testutil.ToFloat64(metrics.DBConnectionsOpen); got < 0 {
		t.Errorf("open connections gauge = %v", got)
	}
}
