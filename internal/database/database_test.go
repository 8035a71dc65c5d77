package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/lewtec/geogallery/internal/apperr"
)

func TestOpen(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := Open("")
		if !errors.Is(err, apperr.StorageUnavailable) {
			t.Errorf("Open(\"\") error = %v, want StorageUnavailable", err)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "db.sqlite"))
		if !errors.Is(err, apperr.StorageUnavailable) {
			t.Errorf("Open() error = %v, want StorageUnavailable", err)
		}
	})
}

func TestOpenAndMigrate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gallery.db")

	for i := 0; i < 2; i++ {
		db, err := OpenAndMigrate(ctx, path)
		if err != nil {
			t.Fatalf("OpenAndMigrate() run %d error = %v", i+1, err)
		}

		var tables int
		err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('images', 'schema_migrations')").Scan(&tables)
		if err != nil {
			t.Fatalf("failed to inspect schema: %v", err)
		}
		if tables != 2 {
			t.Errorf("found %d tables, want 2", tables)
		}
		db.Close()
	}
}

func TestMigrate_Constraints(t *testing.T) {
	ctx := context.Background()
	db, err := OpenAndMigrate(ctx, MemoryPath)
	if err != nil {
		t.Fatalf("OpenAndMigrate() error = %v", err)
	}
	defer db.Close()

	for _, tt := range []struct {
		name  string
		query string
		args  []any
	}{
		{"empty uri", "INSERT INTO images (uri) VALUES (?)", []any{""}},
		{"missing uri", "INSERT INTO images (description) VALUES (?)", []any{"x"}},
		{"latitude only", "INSERT INTO images (uri, latitude) VALUES (?, ?)", []any{"file://a.jpg", 1.0}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.ExecContext(ctx, tt.query, tt.args...)
			if !IsConstraintError(err) {
				t.Errorf("error = %v, want a constraint error", err)
			}
		})
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO images (uri, latitude, longitude) VALUES (?, ?, ?)", "file://a.jpg", 1.0, 2.0); err != nil {
		t.Errorf("valid insert failed: %v", err)
	}
	if IsConstraintError(nil) {
		t.Error("IsConstraintError(nil) = true")
	}
}

func TestDSN(t *testing.T) {
	for _, tt := range []struct {
		path string
		want string
	}{
		{MemoryPath, MemoryPath},
		{"gallery.db", "gallery.db?" + filePragmas},
		{"file:gallery.db?mode=rwc", "file:gallery.db?mode=rwc&" + filePragmas},
		{"/data/gallery.db?_txlock=immediate", "/data/gallery.db?_txlock=immediate&" + filePragmas},
	} {
		if got := DSN(tt.path); got != tt.want {
			t.Errorf("DSN(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestOpen_PathWithQuery(t *testing.T) {
	path := "file:" + filepath.Join(t.TempDir(), "gallery.db") + "?mode=rwc"
	db, err := OpenAndMigrate(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenAndMigrate(%q) error = %v", path, err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("failed to read journal mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestIsConstraintError(t *testing.T) {
	if IsConstraintError(errors.New("CHECK constraint failed")) {
		t.Error("plain errors with a matching text must not count")
	}
}
