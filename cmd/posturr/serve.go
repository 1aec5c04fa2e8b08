package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/posturr/internal/api"
	"github.com/goodtune/posturr/internal/config"
	"github.com/goodtune/posturr/internal/metrics"
	"github.com/goodtune/posturr/internal/notify"
	"github.com/goodtune/posturr/internal/stats"
	"github.com/goodtune/posturr/internal/storage"
	"github.com/goodtune/posturr/internal/storage/bolt"
	"github.com/goodtune/posturr/internal/storage/file"
	"github.com/goodtune/posturr/internal/storage/redis"
	"github.com/goodtune/posturr/internal/storage/sqlite"
	"github.com/goodtune/posturr/internal/systemd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Posturr statistics service",
	Long:  `Start the statistics store with the local HTTP API, metrics endpoint, daily rollover scheduler and optional desktop alerts.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging, os.Stdout)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Bool("systemd", systemd.IsSystemdService()).
		Msg("Starting Posturr")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Initialize storage
	backend, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Str("path", cfg.Storage.Path).
		Msg("Storage initialized")

	// Initialize statistics store
	store := stats.New(backend.Stats(), stats.Config{Sink: metrics.StorageSink{}}, logger)

	todayObserver := metrics.NewTodayObserver(store.Today())
	defer store.Subscribe(todayObserver.Observe)()

	if cfg.Notify.Enabled {
		notifier := notify.New(notify.Config{
			ScoreThreshold: cfg.Notify.ScoreThreshold,
			MinTracked:     parseDuration(cfg.Notify.MinTracked, 10*time.Minute),
		}, logger)
		defer notifier.Close()
		defer store.Subscribe(notifier.Observe)()

		logger.Info().
			Float64("score_threshold", cfg.Notify.ScoreThreshold).
			Str("min_tracked", cfg.Notify.MinTracked).
			Msg("Desktop alerts enabled")
	}

	// Initialize Rollover Scheduler
	rolloverScheduler, err := stats.NewRolloverScheduler(store, cfg.Tracking.RolloverTime, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize rollover scheduler: %w", err)
	}
	rolloverScheduler.Start()

	var apiServer *api.Server
	var metricsServer *metrics.Server
	if cfg.Server.Enabled {
		// Initialize API Server
		apiAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.APIPort)
		apiServer = api.NewServer(api.Config{
			ListenAddr:  apiAddr,
			DefaultDays: cfg.Tracking.RecentDays,
		}, store, logger)

		if sdListeners.Activated && sdListeners.API != nil {
			apiServer.SetListener(sdListeners.API)
		}

		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API Server: %w", err)
		}

		// Initialize Metrics Server
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort)
		metricsServer = metrics.NewServer(metricsAddr, logger)

		if sdListeners.Activated && sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}

		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start Metrics Server: %w", err)
		}

		logger.Info().Msgf("API: http://%s/api/today", apiAddr)
		logger.Info().Msgf("Metrics: http://%s/metrics", metricsAddr)
	}

	logger.Info().Msg("Posturr startup complete")

	// Notify systemd that we're ready to serve requests
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	watchdogCtx, stopWatchdog := context.WithCancel(context.Background())
	go systemd.RunWatchdog(watchdogCtx, logger)

	// Wait for signals (shutdown or forced rollover)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			logger.Info().Msg("SIGHUP received, checking day boundary")
			if store.Rollover() {
				logger.Info().Str("date", store.Today().Key()).Msg("Started a new day")
			}
			continue
		}
		logger.Info().Msg("Shutdown signal received, gracefully stopping...")
		break
	}

	stopWatchdog()

	// Notify systemd that we're stopping
	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	if err := rolloverScheduler.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping rollover scheduler")
	}

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping API Server")
		}
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping Metrics Server")
		}
	}

	logger.Info().Msg("Posturr stopped")

	return nil
}

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "", config.StorageFile:
		return file.Open(cfg.Path)
	case config.StorageBolt:
		return bolt.Open(cfg.Path)
	case config.StorageSQLite:
		return sqlite.Open(cfg.Path)
	case config.StorageRedis:
		return redis.Open(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(out).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
