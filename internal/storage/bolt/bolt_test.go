package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/goodtune/posturr/internal/storage"
	"go.etcd.io/bbolt"
)

func TestLoadArchiveEmpty(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	if _, err := store.Stats().LoadArchive(context.Background()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveArchiveReplacesContents(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	stats := store.Stats()
	ctx := context.Background()
	date := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

	first := storage.Archive{
		"2024-01-01": {Date: date.AddDate(0, 0, -1), TotalSeconds: 10},
		"2024-01-02": {Date: date, TotalSeconds: 120, SlouchSeconds: 30, SlouchCount: 2},
	}
	if err := stats.SaveArchive(ctx, first); err != nil {
		t.Fatalf("save archive: %v", err)
	}

	second := storage.Archive{
		"2024-01-02": {Date: date, TotalSeconds: 180, SlouchSeconds: 30, SlouchCount: 3},
	}
	if err := stats.SaveArchive(ctx, second); err != nil {
		t.Fatalf("save archive: %v", err)
	}

	loaded, err := stats.LoadArchive(ctx)
	if err != nil {
		t.Fatalf("load archive: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 day after overwrite, got %d", len(loaded))
	}
	got := loaded["2024-01-02"]
	if got.TotalSeconds != 180 || got.SlouchCount != 3 || !got.Date.Equal(date) {
		t.Fatalf("unexpected entry %+v", got)
	}
}

func TestLoadArchiveCorruptValue(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketDailyStats)).Put([]byte("2024-01-02"), []byte("garbage"))
	})
	if err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	if _, err := store.Stats().LoadArchive(context.Background()); !errors.Is(err, storage.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "posturr.bolt")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}
