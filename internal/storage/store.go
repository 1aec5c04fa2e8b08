package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when nothing has been persisted yet.
	ErrNotFound = errors.New("storage: record not found")

	// ErrCorrupt is returned when a persisted archive exists but cannot be decoded.
	ErrCorrupt = errors.New("storage: archive corrupt")
)

// Store represents the root storage interface.
type Store interface {
	Close() error
	Stats() StatsStore
}

// StatsStore persists the archive of daily statistics as a single document.
type StatsStore interface {
	// LoadArchive returns ErrNotFound when no archive has been written yet and
	// an error wrapping ErrCorrupt when the stored document cannot be decoded.
	LoadArchive(ctx context.Context) (Archive, error)

	// SaveArchive overwrites the stored archive with the given one.
	SaveArchive(ctx context.Context, archive Archive) error
}
