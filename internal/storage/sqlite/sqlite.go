package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goodtune/posturr/internal/storage"
	_ "modernc.org/sqlite"
)

// Store implements the storage.Store interface on an SQLite database
type Store struct {
	db *sql.DB
}

// Open opens the database at path and runs migrations
func Open(path string) (*Store, error) {
	if err := storage.EnsureParentDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite limitation
	db.SetMaxIdleConns(1)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Stats returns the archive store
func (s *Store) Stats() storage.StatsStore {
	return s
}

// LoadArchive reads every row of daily_stats
func (s *Store) LoadArchive(ctx context.Context) (storage.Archive, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date_key, recorded_at, total_seconds, slouch_seconds, slouch_count
		FROM daily_stats
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	archive := make(storage.Archive)
	for rows.Next() {
		var (
			key        string
			recordedAt string
			stats      storage.DailyStats
		)
		if err := rows.Scan(&key, &recordedAt, &stats.TotalSeconds, &stats.SlouchSeconds, &stats.SlouchCount); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", storage.ErrCorrupt, key, err)
		}
		stats.Date, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: parse recorded_at of %s: %v", storage.ErrCorrupt, key, err)
		}
		archive[key] = stats
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read daily stats: %w", err)
	}

	if len(archive) == 0 {
		return nil, storage.ErrNotFound
	}
	return archive, nil
}

// SaveArchive replaces the table contents in one transaction
func (s *Store) SaveArchive(ctx context.Context, archive storage.Archive) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_stats`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to clear daily stats: %w", err)
	}

	for key, stats := range archive {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO daily_stats (date_key, recorded_at, total_seconds, slouch_seconds, slouch_count)
			VALUES (?, ?, ?, ?, ?)
		`, key, stats.Date.Format(time.RFC3339Nano), stats.TotalSeconds, stats.SlouchSeconds, stats.SlouchCount); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit daily stats: %w", err)
	}
	return nil
}

// runMigrations applies all database migrations
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL UNIQUE,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	for i, migration := range migrations {
		version := i + 1
		if version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(migration); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}
	}

	return nil
}

// migrations are applied in slice order; version = index + 1.
var migrations = []string{
	migration001DailyStats,
}

const migration001DailyStats = `
CREATE TABLE IF NOT EXISTS daily_stats (
	date_key TEXT PRIMARY KEY, -- YYYY-MM-DD, local time
	recorded_at TEXT NOT NULL, -- RFC3339 timestamp of the record's date
	total_seconds REAL NOT NULL DEFAULT 0,
	slouch_seconds REAL NOT NULL DEFAULT 0,
	slouch_count INTEGER NOT NULL DEFAULT 0
);
`
