package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/posturr/internal/config"
	"github.com/goodtune/posturr/internal/storage"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the hash holding the archive when none is configured.
const DefaultKey = "posturr:daily_stats"

// Store implements the storage.Store interface using Redis
type Store struct {
	client     *redis.Client
	statsStore *statsStore
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	// Parse timeouts
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Determine address
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	// Ping to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}

	return &Store{
		client:     client,
		statsStore: &statsStore{client: client, key: key},
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Stats returns the StatsStore implementation
func (s *Store) Stats() storage.StatsStore {
	return s.statsStore
}

// statsStore keeps the archive in one hash: field = date key, value = JSON.
type statsStore struct {
	client *redis.Client
	key    string
}

// LoadArchive reads every field of the archive hash
func (s *statsStore) LoadArchive(ctx context.Context) (storage.Archive, error) {
	data, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	archive := make(storage.Archive, len(data))
	for date, raw := range data {
		stats, err := storage.UnmarshalStats([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", date, err)
		}
		archive[date] = stats
	}
	return archive, nil
}

// SaveArchive replaces the archive hash inside MULTI/EXEC
func (s *statsStore) SaveArchive(ctx context.Context, archive storage.Archive) error {
	fields := make(map[string]interface{}, len(archive))
	for date, stats := range archive {
		data, err := storage.MarshalStats(stats)
		if err != nil {
			return err
		}
		fields[date] = data
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(fields) > 0 {
			pipe.HSet(ctx, s.key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}
