package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/posturr/internal/config"
	"github.com/goodtune/posturr/internal/report"
	"github.com/goodtune/posturr/internal/stats"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	reportDays   int
	reportFormat string
	reportFollow bool
	reportAll    bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show statistics for recent days",
	Long: `Show the most recent days, oldest first, with tracked time, slouching time,
slouch events and posture score. Days without data are shown as empty.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().IntVarP(&reportDays, "days", "d", 0, "Number of days to show (defaults to tracking.recent_days)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", report.FormatTable, "Output format: table, json or yaml")
	reportCmd.Flags().BoolVar(&reportAll, "all", false, "Show every archived day instead of a recent window")
	reportCmd.Flags().BoolVar(&reportFollow, "follow", false, "Re-render whenever the archive file changes (file storage only)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadCLI()
	if err != nil {
		return err
	}

	days := reportDays
	if days == 0 {
		days = cfg.Tracking.RecentDays
	}
	if days < 0 {
		return fmt.Errorf("--days must be positive, got %d", days)
	}

	switch reportFormat {
	case report.FormatTable, report.FormatJSON, report.FormatYAML:
	default:
		return fmt.Errorf("unsupported report format: %s", reportFormat)
	}

	if err := renderReport(cfg, days, logger); err != nil {
		return err
	}

	if !reportFollow {
		return nil
	}
	if cfg.Storage.Type != config.StorageFile {
		return fmt.Errorf("--follow requires file storage, configured storage is %s", cfg.Storage.Type)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return report.Watch(ctx, cfg.Storage.Path, 250*time.Millisecond, func() {
		fmt.Println()
		if err := renderReport(cfg, days, logger); err != nil {
			logger.Error().Err(err).Msg("Failed to render report")
		}
	}, logger)
}

func renderReport(cfg *config.Config, days int, logger zerolog.Logger) error {
	backend, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(backend, logger)

	store := stats.New(backend.Stats(), stats.Config{}, logger)
	return report.Render(os.Stdout, selectDays(store, days, reportAll), reportFormat)
}

// selectDays returns the full archive or the recent window, oldest first.
func selectDays(store *stats.Store, days int, all bool) []stats.DailyRecord {
	if all {
		return store.History()
	}
	return store.RecentDays(days)
}
