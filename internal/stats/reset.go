package stats

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// RolloverScheduler forces a day rollover at a fixed time of day so that a
// long-running process resets today's record even when no events arrive.
type RolloverScheduler struct {
	store     *Store
	at        time.Time // Only hour and minute are used
	scheduler gocron.Scheduler
	job       gocron.Job
	logger    zerolog.Logger
}

// NewRolloverScheduler creates a scheduler firing daily at at ("HH:MM", local time).
func NewRolloverScheduler(store *Store, at string, logger zerolog.Logger) (*RolloverScheduler, error) {
	parsed, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("invalid rollover time %q: %w", at, err)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.Local))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	rs := &RolloverScheduler{
		store:     store,
		at:        parsed,
		scheduler: scheduler,
		logger:    logger.With().Str("component", "rollover-scheduler").Logger(),
	}

	// A few seconds past the minute so the wall clock is safely on the new date.
	job, err := scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(
			gocron.NewAtTime(uint(parsed.Hour()), uint(parsed.Minute()), 5),
		)),
		gocron.NewTask(rs.performRollover),
		gocron.WithName("daily-rollover"),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("failed to schedule rollover: %w", err)
	}
	rs.job = job

	return rs, nil
}

// Start begins the rollover scheduler
func (rs *RolloverScheduler) Start() {
	rs.scheduler.Start()

	event := rs.logger.Info().Str("rollover_time", rs.at.Format("15:04"))
	if next, err := rs.job.NextRun(); err == nil {
		event = event.Time("next_rollover", next)
	}
	event.Msg("Daily rollover scheduler started")
}

// Stop stops the rollover scheduler
func (rs *RolloverScheduler) Stop() error {
	if err := rs.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop rollover scheduler: %w", err)
	}
	rs.logger.Info().Msg("Daily rollover scheduler stopped")
	return nil
}

func (rs *RolloverScheduler) performRollover() {
	if rs.store.Rollover() {
		rs.logger.Info().Str("date", rs.store.Today().Key()).Msg("Scheduled rollover started a new day")
		return
	}
	rs.logger.Debug().Msg("Scheduled rollover found no date change")
}
