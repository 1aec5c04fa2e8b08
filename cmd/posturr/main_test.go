package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goodtune/posturr/internal/config"
	"github.com/goodtune/posturr/internal/stats"
	"github.com/rs/zerolog"
)

func TestFindUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "storage:\n  type: file\n  pth: /tmp/x\nlogging:\n  level: info\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	unknown, err := findUnknownKeys(path)
	if err != nil {
		t.Fatalf("findUnknownKeys: %v", err)
	}
	if len(unknown) != 1 || unknown[0] != "storage.pth" {
		t.Errorf("unknown keys = %v, want [storage.pth]", unknown)
	}
}

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()

	for _, typ := range []string{config.StorageFile, config.StorageBolt, config.StorageSQLite} {
		t.Run(typ, func(t *testing.T) {
			backend, err := openStorage(config.StorageConfig{
				Type: typ,
				Path: filepath.Join(dir, typ, "posturr.data"),
			})
			if err != nil {
				t.Fatalf("openStorage(%s): %v", typ, err)
			}
			if backend.Stats() == nil {
				t.Error("expected a stats store")
			}
			if err := backend.Close(); err != nil {
				t.Errorf("Close: %v", err)
			}
		})
	}

	if _, err := openStorage(config.StorageConfig{Type: "postgres"}); err == nil {
		t.Error("expected error for unsupported storage type")
	}
}

func TestParseDuration(t *testing.T) {
	if got := parseDuration("90s", time.Minute); got != 90*time.Second {
		t.Errorf("parseDuration(90s) = %v", got)
	}
	if got := parseDuration("soon", time.Minute); got != time.Minute {
		t.Errorf("parseDuration(soon) = %v, want fallback", got)
	}
}

func TestCorruptArchiveAdvice(t *testing.T) {
	if got := corruptArchiveAdvice(config.StorageFile); !strings.Contains(got, ".corrupt") {
		t.Errorf("file advice = %q, want mention of .corrupt", got)
	}
	for _, typ := range []string{config.StorageBolt, config.StorageSQLite, config.StorageRedis} {
		got := corruptArchiveAdvice(typ)
		if strings.Contains(got, ".corrupt") {
			t.Errorf("%s advice = %q, should not promise a backup", typ, got)
		}
		if !strings.Contains(got, "lost") {
			t.Errorf("%s advice = %q, want a data loss warning", typ, got)
		}
	}
}

func TestSelectDays(t *testing.T) {
	backend, err := openStorage(config.StorageConfig{
		Type: config.StorageFile,
		Path: filepath.Join(t.TempDir(), "analytics.json"),
	})
	if err != nil {
		t.Fatalf("openStorage: %v", err)
	}
	defer backend.Close()

	clock := stats.NewTestClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local))
	store := stats.New(backend.Stats(), stats.Config{Clock: clock}, zerolog.Nop())
	store.TrackTime(time.Minute, false)
	clock.Set(time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local))
	store.TrackTime(time.Minute, true)

	all := selectDays(store, 3, true)
	if len(all) != 2 || all[0].Key() != "2024-01-01" || all[1].Key() != "2024-03-01" {
		t.Errorf("all days = %v, want the two archived days in order", all)
	}

	recent := selectDays(store, 3, false)
	if len(recent) != 3 || recent[2].Key() != "2024-03-01" {
		t.Errorf("recent days = %v, want 3 days ending 2024-03-01", recent)
	}
}
