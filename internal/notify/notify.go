// Package notify raises a desktop alert when today's posture score drops
// below a threshold.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/goodtune/posturr/internal/stats"
	"github.com/rs/zerolog"
)

// AppName is shown as the notification source.
const AppName = "Posturr"

// SendFunc delivers a notification.
type SendFunc func(title, message string) error

// Config holds notifier settings.
type Config struct {
	ScoreThreshold float64
	MinTracked     time.Duration
	Send           SendFunc // Defaults to a beeep desktop notification
}

// Notifier alerts at most once per day. Delivery runs on its own goroutine
// so a slow notification daemon never holds up the store.
type Notifier struct {
	config Config
	logger zerolog.Logger

	mu         sync.Mutex
	alertedFor string

	pending sync.WaitGroup
}

// New creates a notifier.
func New(cfg Config, logger zerolog.Logger) *Notifier {
	if cfg.Send == nil {
		beeep.AppName = AppName
		cfg.Send = func(title, message string) error {
			return beeep.Notify(title, message, "")
		}
	}
	return &Notifier{
		config: cfg,
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

// Observe checks today's record; pass it to stats.Store.Subscribe.
func (n *Notifier) Observe(today stats.DailyRecord) {
	if today.TotalSeconds < n.config.MinTracked.Seconds() {
		return
	}
	score := today.PostureScore()
	if score >= n.config.ScoreThreshold {
		return
	}

	n.mu.Lock()
	if n.alertedFor == today.Key() {
		n.mu.Unlock()
		return
	}
	n.alertedFor = today.Key()
	n.mu.Unlock()

	title := "Posture check"
	message := fmt.Sprintf("Your posture score today is %.0f%% (%d slouch episodes). Sit up straight!",
		score, today.SlouchCount)

	n.pending.Add(1)
	go func() {
		defer n.pending.Done()
		n.send(today.Key(), score, title, message)
	}()
}

// Close waits for in-flight notifications.
func (n *Notifier) Close() {
	n.pending.Wait()
}

func (n *Notifier) send(date string, score float64, title, message string) {
	if err := n.config.Send(title, message); err != nil {
		n.logger.Warn().Err(err).Str("date", date).Msg("Failed to send desktop notification")
		return
	}

	n.logger.Info().
		Str("date", date).
		Float64("score", score).
		Float64("threshold", n.config.ScoreThreshold).
		Msg("Posture alert sent")
}
