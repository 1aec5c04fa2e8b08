package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goodtune/posturr/internal/config"
	"github.com/goodtune/posturr/internal/stats"
	"github.com/goodtune/posturr/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var trackSlouching bool

var trackCmd = &cobra.Command{
	Use:   "track DURATION",
	Short: "Add monitored time to today's statistics",
	Long: `Add a monitoring interval (e.g. 30s, 5m) to today's statistics, optionally
counting it as slouching time. The archive is updated directly, so do not run
this against a backend that a running serve process is also writing.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrack,
}

var slouchCmd = &cobra.Command{
	Use:   "slouch",
	Short: "Record the start of a slouch episode",
	Args:  cobra.NoArgs,
	RunE:  runSlouch,
}

func init() {
	trackCmd.Flags().BoolVarP(&trackSlouching, "slouching", "s", false, "Count the interval as slouching")
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(slouchCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	interval, err := time.ParseDuration(args[0])
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", args[0], err)
	}
	if interval < 0 {
		return fmt.Errorf("duration must not be negative: %s", interval)
	}

	return withLocalStore(func(store *stats.Store) {
		store.TrackTime(interval, trackSlouching)
		printToday(store.Today())
	})
}

func runSlouch(cmd *cobra.Command, args []string) error {
	return withLocalStore(func(store *stats.Store) {
		store.RecordSlouchEvent()
		printToday(store.Today())
	})
}

// withLocalStore opens the configured backend, runs fn against a store
// built on it and closes the backend. Logs go to stderr.
func withLocalStore(fn func(store *stats.Store)) error {
	cfg, logger, err := loadCLI()
	if err != nil {
		return err
	}

	backend, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(backend, logger)

	var failure *stats.StorageError
	sink := stats.SinkFunc(func(err *stats.StorageError) {
		failure = err
	})

	fn(stats.New(backend.Stats(), stats.Config{Sink: sink}, logger))

	if failure != nil && failure.Op == stats.OpSave {
		return failure
	}
	return nil
}

func loadCLI() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load configuration: %w", err)
	}

	// Keep stdout for command output
	if cfg.Logging.Level == "info" {
		cfg.Logging.Level = "warn"
	}
	cfg.Logging.Format = "text"
	return cfg, setupLogger(cfg.Logging, os.Stderr), nil
}

func closeStorage(backend storage.Store, logger zerolog.Logger) {
	if err := backend.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close storage")
	}
}

func printToday(today stats.DailyRecord) {
	fmt.Printf("%s: %s tracked, %s slouching, %d slouch events, score %.0f\n",
		today.Key(),
		time.Duration(today.TotalSeconds*float64(time.Second)).Round(time.Second),
		time.Duration(today.SlouchSeconds*float64(time.Second)).Round(time.Second),
		today.SlouchCount,
		today.PostureScore(),
	)
}
