package stats

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/goodtune/posturr/internal/storage"
	"github.com/rs/zerolog"
)

// Config holds store configuration
type Config struct {
	Clock Clock
	Sink  DiagnosticSink
}

// Store owns today's running statistics and the archive of past days.
// Every mutation is mirrored into the archive and persisted before it returns.
type Store struct {
	backend storage.StatsStore
	clock   Clock
	sink    DiagnosticSink
	logger  zerolog.Logger

	mu      sync.RWMutex
	today   DailyRecord
	history map[string]DailyRecord

	// saveMu orders notification and persistence so that saves reach the
	// backend in the order the mutations happened.
	saveMu sync.Mutex

	obsMu     sync.RWMutex
	observers map[int]func(DailyRecord)
	nextObs   int
}

// New creates a store and restores its archive from backend.
func New(backend storage.StatsStore, config Config, logger zerolog.Logger) *Store {
	if config.Clock == nil {
		config.Clock = RealClock{}
	}

	s := &Store{
		backend:   backend,
		clock:     config.Clock,
		sink:      config.Sink,
		logger:    logger.With().Str("component", "stats-store").Logger(),
		history:   make(map[string]DailyRecord),
		observers: make(map[int]func(DailyRecord)),
	}

	now := s.clock.Now()
	s.today = NewDailyRecord(now)

	s.load()
	if existing, ok := s.history[DateKey(now)]; ok {
		s.today = existing
		s.logger.Info().
			Str("date", existing.Key()).
			Float64("total_seconds", existing.TotalSeconds).
			Msg("Resumed today's statistics")
	}
	s.checkRollover()

	return s
}

// TrackTime adds interval to today's active time, and to slouch time when
// slouching is set.
func (s *Store) TrackTime(interval time.Duration, slouching bool) {
	if interval < 0 {
		s.logger.Warn().Dur("interval", interval).Msg("Ignoring negative tracking interval")
		return
	}

	s.mutate(func(today *DailyRecord) {
		seconds := interval.Seconds()
		today.TotalSeconds += seconds
		if slouching {
			today.SlouchSeconds += seconds
		}

		s.logger.Debug().
			Str("date", today.Key()).
			Float64("seconds", seconds).
			Bool("slouching", slouching).
			Float64("total_seconds", today.TotalSeconds).
			Msg("Tracked time")
	})
}

// RecordSlouchEvent counts the start of a new slouch episode.
func (s *Store) RecordSlouchEvent() {
	s.mutate(func(today *DailyRecord) {
		today.SlouchCount++

		s.logger.Debug().
			Str("date", today.Key()).
			Int("slouch_count", today.SlouchCount).
			Msg("Recorded slouch event")
	})
}

// Rollover starts a fresh record when the calendar date has moved past
// today's. It reports whether a rollover happened.
func (s *Store) Rollover() bool {
	s.mu.Lock()
	if !s.checkRollover() {
		s.mu.Unlock()
		return false
	}
	s.history[s.today.Key()] = s.today
	s.commit()
	return true
}

// Today returns the live record without checking the day boundary.
func (s *Store) Today() DailyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.today
}

// RecentDays returns the n calendar days ending at the current date, oldest
// first. Days never observed are returned as zeroed records.
func (s *Store) RecentDays(n int) []DailyRecord {
	if n <= 0 {
		return []DailyRecord{}
	}

	now := s.clock.Now()
	y, m, d := now.Date()

	s.mu.RLock()
	defer s.mu.RUnlock()

	days := make([]DailyRecord, 0, n)
	for i := n - 1; i >= 0; i-- {
		// Noon keeps the date stable across DST transitions.
		day := time.Date(y, m, d-i, 12, 0, 0, 0, now.Location())
		key := DateKey(day)
		if record, ok := s.history[key]; ok {
			days = append(days, record)
			continue
		}
		if key == s.today.Key() {
			days = append(days, s.today)
			continue
		}
		days = append(days, NewDailyRecord(startOfDay(day)))
	}
	return days
}

// LastWeek returns RecentDays(DefaultRecentDays).
func (s *Store) LastWeek() []DailyRecord {
	return s.RecentDays(DefaultRecentDays)
}

// History returns every archived day ordered by date.
func (s *Store) History() []DailyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := make([]DailyRecord, 0, len(s.history))
	for _, record := range s.history {
		days = append(days, record)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Key() < days[j].Key()
	})
	return days
}

// Subscribe registers fn to receive today's record after every mutation.
// fn runs on the mutating goroutine and must not mutate the store.
func (s *Store) Subscribe(fn func(DailyRecord)) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

// mutate applies fn to today after a rollover check, then mirrors, notifies
// and persists.
func (s *Store) mutate(fn func(today *DailyRecord)) {
	s.mu.Lock()
	s.checkRollover()
	fn(&s.today)
	s.history[s.today.Key()] = s.today
	s.commit()
}

// commit must be called with mu held; it releases mu.
func (s *Store) commit() {
	today := s.today
	archive := s.snapshot()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	s.mu.Unlock()

	s.notify(today)
	s.save(archive)
}

// checkRollover must be called with mu held.
func (s *Store) checkRollover() bool {
	now := s.clock.Now()
	if DateKey(now) == s.today.Key() {
		return false
	}

	previous := s.today
	s.today = NewDailyRecord(now)

	s.logger.Info().
		Str("previous_date", previous.Key()).
		Str("date", s.today.Key()).
		Float64("previous_total_seconds", previous.TotalSeconds).
		Msg("Day rollover")

	return true
}

// snapshot must be called with mu held.
func (s *Store) snapshot() storage.Archive {
	archive := make(storage.Archive, len(s.history))
	for key, record := range s.history {
		archive[key] = record.toStorage()
	}
	return archive
}

func (s *Store) notify(today DailyRecord) {
	s.obsMu.RLock()
	observers := make([]func(DailyRecord), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.obsMu.RUnlock()

	for _, fn := range observers {
		fn(today)
	}
}

func (s *Store) load() {
	archive, err := s.backend.LoadArchive(context.Background())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug().Msg("No statistics history yet")
			return
		}
		msg := "Failed to load statistics history"
		if errors.Is(err, storage.ErrCorrupt) {
			msg = "Statistics history is unreadable, starting empty"
		}
		s.logger.Error().Err(err).Str("op", OpLoad).Msg(msg)
		s.report(&StorageError{Op: OpLoad, Err: err})
		return
	}

	for key, stats := range archive {
		s.history[key] = recordFromStorage(stats)
	}

	s.logger.Info().Int("days", len(s.history)).Msg("Loaded statistics history")
}

func (s *Store) save(archive storage.Archive) {
	if err := s.backend.SaveArchive(context.Background(), archive); err != nil {
		s.logger.Error().Err(err).Str("op", OpSave).Msg("Failed to save statistics history")
		s.report(&StorageError{Op: OpSave, Err: err})
	}
}

func (s *Store) report(err *StorageError) {
	if s.sink != nil {
		s.sink.StorageFailed(err)
	}
}
