package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goodtune/posturr/internal/storage"
)

func TestLoadArchiveMissingFile(t *testing.T) {
	store := openTestStore(t)

	_, err := store.LoadArchive(context.Background())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveAndLoadArchive(t *testing.T) {
	store := openTestStore(t)
	date := time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC)

	archive := storage.Archive{
		"2024-05-06": {Date: date, TotalSeconds: 3600, SlouchSeconds: 600.5, SlouchCount: 4},
	}
	if err := store.SaveArchive(context.Background(), archive); err != nil {
		t.Fatalf("save archive: %v", err)
	}

	loaded, err := store.LoadArchive(context.Background())
	if err != nil {
		t.Fatalf("load archive: %v", err)
	}
	got, ok := loaded["2024-05-06"]
	if !ok {
		t.Fatalf("expected entry for 2024-05-06, got %v", loaded)
	}
	if !got.Date.Equal(date) || got.TotalSeconds != 3600 || got.SlouchSeconds != 600.5 || got.SlouchCount != 4 {
		t.Fatalf("unexpected entry after load: %+v", got)
	}

	if _, err := os.Stat(store.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestDocumentIsKeyedByDate(t *testing.T) {
	store := openTestStore(t)

	archive := storage.Archive{
		"2024-05-06": {Date: time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), TotalSeconds: 1},
	}
	if err := store.SaveArchive(context.Background(), archive); err != nil {
		t.Fatalf("save archive: %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	for _, want := range []string{`"2024-05-06"`, `"total_seconds"`, `"slouch_seconds"`, `"slouch_count"`, `"date"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("document missing %s:\n%s", want, data)
		}
	}
}

func TestCorruptArchiveIsPreservedOnSave(t *testing.T) {
	store := openTestStore(t)
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	_, err := store.LoadArchive(context.Background())
	if !errors.Is(err, storage.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil || string(data) != "{not json" {
		t.Fatalf("load must leave the corrupt document untouched, got %q (%v)", data, err)
	}

	if err := store.SaveArchive(context.Background(), storage.Archive{}); err != nil {
		t.Fatalf("save archive: %v", err)
	}

	preserved, err := os.ReadFile(store.Path() + ".corrupt")
	if err != nil {
		t.Fatalf("expected corrupt document to be preserved: %v", err)
	}
	if string(preserved) != "{not json" {
		t.Fatalf("unexpected preserved content %q", preserved)
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "Posturr", "analytics.json")
	if _, err := Open(path); err != nil {
		t.Fatalf("open store: %v", err)
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		t.Fatalf("expected parent directory to exist: %v", err)
	}
}

func TestSaveFailsWhenDirectoryUnavailable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	// The parent "directory" is a regular file, so it cannot be created.
	store, err := Open(filepath.Join(blocker, "analytics.json"))
	if err != nil {
		t.Fatalf("open must tolerate directory failure: %v", err)
	}
	if err := store.SaveArchive(context.Background(), storage.Archive{}); err == nil {
		t.Fatal("expected save to fail")
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "analytics.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}
