package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/goodtune/posturr/internal/storage"
)

func TestLoadArchiveEmpty(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	if _, err := store.LoadArchive(context.Background()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveAndLoadArchive(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	date := time.Date(2024, 2, 29, 23, 59, 30, 500, time.UTC)

	if err := store.SaveArchive(ctx, storage.Archive{
		"2024-02-28": {Date: date.AddDate(0, 0, -1), TotalSeconds: 5},
		"2024-02-29": {Date: date, TotalSeconds: 7200.25, SlouchSeconds: 1800, SlouchCount: 9},
	}); err != nil {
		t.Fatalf("save archive: %v", err)
	}
	if err := store.SaveArchive(ctx, storage.Archive{
		"2024-02-29": {Date: date, TotalSeconds: 7300.25, SlouchSeconds: 1800, SlouchCount: 10},
	}); err != nil {
		t.Fatalf("save archive: %v", err)
	}

	loaded, err := store.LoadArchive(ctx)
	if err != nil {
		t.Fatalf("load archive: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 day, got %d", len(loaded))
	}
	got := loaded["2024-02-29"]
	if !got.Date.Equal(date) || got.TotalSeconds != 7300.25 || got.SlouchSeconds != 1800 || got.SlouchCount != 10 {
		t.Fatalf("unexpected entry %+v", got)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posturr.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	_ = first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = second.Close() }()

	var version int
	if err := second.db.QueryRow("SELECT MAX(version) FROM migrations").Scan(&version); err != nil {
		t.Fatalf("query version: %v", err)
	}
	if version != len(migrations) {
		t.Fatalf("expected version %d, got %d", len(migrations), version)
	}
}

func TestLoadArchiveCorruptTimestamp(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	if _, err := store.db.Exec(`INSERT INTO daily_stats (date_key, recorded_at) VALUES ('2024-01-01', 'yesterday')`); err != nil {
		t.Fatalf("insert row: %v", err)
	}

	if _, err := store.LoadArchive(context.Background()); !errors.Is(err, storage.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "posturr.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}
