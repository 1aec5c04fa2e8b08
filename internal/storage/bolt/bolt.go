package bolt

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/posturr/internal/storage"
	"go.etcd.io/bbolt"
)

const bucketDailyStats = "daily_stats"

// Store implements the storage.Store interface using bbolt.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store.
func Open(path string) (*Store, error) {
	if err := storage.EnsureParentDir(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketDailyStats)); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketDailyStats, err)
		}
		return nil
	})
}

// Close closes the underlying store database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Stats returns the archive store.
func (s *Store) Stats() storage.StatsStore { return &statsStore{db: s.db} }

type statsStore struct {
	db *bbolt.DB
}

func (s *statsStore) LoadArchive(ctx context.Context) (storage.Archive, error) {
	archive := make(storage.Archive)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketDailyStats))
		if b == nil {
			return storage.ErrNotFound
		}
		return b.ForEach(func(k, v []byte) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			stats, err := storage.UnmarshalStats(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			archive[string(k)] = stats
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if len(archive) == 0 {
		return nil, storage.ErrNotFound
	}
	return archive, nil
}

// SaveArchive replaces the bucket contents in a single transaction.
func (s *statsStore) SaveArchive(ctx context.Context, archive storage.Archive) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if tx.Bucket([]byte(bucketDailyStats)) != nil {
			if err := tx.DeleteBucket([]byte(bucketDailyStats)); err != nil {
				return fmt.Errorf("clear bucket: %w", err)
			}
		}
		b, err := tx.CreateBucket([]byte(bucketDailyStats))
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketDailyStats, err)
		}
		for key, stats := range archive {
			data, err := storage.MarshalStats(stats)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}
