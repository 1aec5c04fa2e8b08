package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/goodtune/posturr/internal/storage"
)

// Store keeps the whole archive in a single JSON document.
type Store struct {
	path string

	mu sync.Mutex
	// corrupt is set when the last load found an undecodable document; the
	// next save moves that document aside instead of overwriting it.
	corrupt bool
}

// Open returns a file-backed store rooted at path. The parent directory is
// created if missing; failure to create it is not fatal, saves report it.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	_ = storage.EnsureParentDir(path)
	return &Store{path: path}, nil
}

// Path returns the location of the archive document.
func (s *Store) Path() string {
	return s.path
}

// Close is a no-op; the file is not held open between operations.
func (s *Store) Close() error {
	return nil
}

// Stats returns the archive store.
func (s *Store) Stats() storage.StatsStore {
	return s
}

// LoadArchive reads and decodes the archive document.
func (s *Store) LoadArchive(ctx context.Context) (storage.Archive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read archive: %w", err)
	}

	var archive storage.Archive
	if err := json.Unmarshal(data, &archive); err != nil {
		s.mu.Lock()
		s.corrupt = true
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s: %v", storage.ErrCorrupt, s.path, err)
	}
	if archive == nil {
		archive = storage.Archive{}
	}
	return archive, nil
}

// SaveArchive atomically replaces the archive document.
func (s *Store) SaveArchive(ctx context.Context, archive storage.Archive) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.corrupt {
		if err := os.Rename(s.path, s.path+".corrupt"); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("preserve corrupt archive: %w", err)
		}
		s.corrupt = false
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace archive: %w", err)
	}
	return nil
}
