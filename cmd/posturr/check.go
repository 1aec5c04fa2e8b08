package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/posturr/internal/config"
	"github.com/goodtune/posturr/internal/stats"
	"github.com/goodtune/posturr/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration and stored statistics",
	Long: `Validate the configuration file, report unknown keys, open the configured
storage backend and verify that the statistics archive can be read.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed, color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)

	cfg, logger, err := loadCLI()
	if err != nil {
		_, _ = red.Fprintf(os.Stderr, "✗ Configuration invalid: %v\n", err)
		return err
	}

	_, _ = cyan.Println("[config]")
	if _, statErr := os.Stat(configPath); statErr != nil {
		_, _ = yellow.Printf("  ! %s not found, using defaults and environment\n", configPath)
	} else {
		_, _ = green.Printf("  ✓ %s is valid\n", configPath)

		unknownKeys, err := findUnknownKeys(configPath)
		if err != nil {
			_, _ = yellow.Printf("  ! Could not check for unknown keys: %v\n", err)
		}
		for _, key := range unknownKeys {
			_, _ = red.Printf("  ✗ unknown key %s (ignored)\n", key)
		}
	}

	_, _ = cyan.Println("\n[storage]")
	fmt.Printf("  type = %s\n", cfg.Storage.Type)
	if cfg.Storage.Type == config.StorageRedis {
		fmt.Printf("  redis = %s:%d key=%s\n", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, cfg.Storage.Redis.Key)
	} else {
		fmt.Printf("  path = %s\n", cfg.Storage.Path)
	}

	backend, err := openStorage(cfg.Storage)
	if err != nil {
		_, _ = red.Printf("  ✗ Cannot open storage: %v\n", err)
		return fmt.Errorf("storage check failed: %w", err)
	}
	defer closeStorage(backend, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	archive, err := backend.Stats().LoadArchive(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		_, _ = yellow.Println("  ! No statistics recorded yet")
		return nil
	case errors.Is(err, storage.ErrCorrupt):
		_, _ = red.Printf("  ✗ Archive is unreadable: %v\n", err)
		fmt.Println("    " + corruptArchiveAdvice(cfg.Storage.Type))
		return fmt.Errorf("storage check failed: %w", err)
	case err != nil:
		_, _ = red.Printf("  ✗ Cannot read archive: %v\n", err)
		return fmt.Errorf("storage check failed: %w", err)
	}

	keys := make([]string, 0, len(archive))
	for key := range archive {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	_, _ = green.Printf("  ✓ Archive readable: %d day(s)", len(keys))
	if len(keys) > 0 {
		fmt.Printf(" from %s to %s", keys[0], keys[len(keys)-1])
	}
	fmt.Println()

	today := stats.DateKey(time.Now())
	if day, ok := archive[today]; ok {
		_, _ = cyan.Println("\n[today]")
		printToday(stats.DailyRecord{
			Date:          day.Date,
			TotalSeconds:  day.TotalSeconds,
			SlouchSeconds: day.SlouchSeconds,
			SlouchCount:   day.SlouchCount,
		})
	}

	return nil
}

// corruptArchiveAdvice describes what the next save does to an unreadable archive.
func corruptArchiveAdvice(storageType string) string {
	if storageType == config.StorageFile {
		return "It will be moved aside to <path>.corrupt and replaced on the next recorded event."
	}
	return "The next recorded event overwrites it; previously stored days will be lost unless repaired first."
}

// findUnknownKeys loads the config file and checks for unknown keys
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	validKeys := getValidKeys()

	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !validKeys[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	return unknown, nil
}

// getValidKeys returns a set of all valid configuration keys
func getValidKeys() map[string]bool {
	return map[string]bool{
		// Storage
		"storage.type":                true,
		"storage.path":                true,
		"storage.redis.host":          true,
		"storage.redis.port":          true,
		"storage.redis.password":      true,
		"storage.redis.db":            true,
		"storage.redis.key":           true,
		"storage.redis.dial_timeout":  true,
		"storage.redis.read_timeout":  true,
		"storage.redis.write_timeout": true,

		// Logging
		"logging.level":  true,
		"logging.format": true,

		// Tracking
		"tracking.recent_days":   true,
		"tracking.rollover_time": true,

		// Server
		"server.enabled":      true,
		"server.bind_address": true,
		"server.api_port":     true,
		"server.metrics_port": true,

		// Notify
		"notify.enabled":         true,
		"notify.score_threshold": true,
		"notify.min_tracked":     true,
	}
}
