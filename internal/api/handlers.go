package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/goodtune/posturr/internal/metrics"
	"github.com/goodtune/posturr/internal/stats"
	"github.com/rs/zerolog"
)

// maxRecentDays bounds the window served by /api/recent.
const maxRecentDays = 366

// maxTrackSeconds is the largest interval representable as a time.Duration.
const maxTrackSeconds = float64(math.MaxInt64) / float64(time.Second)

// Tracker is the part of the stats store the API drives.
type Tracker interface {
	TrackTime(interval time.Duration, slouching bool)
	RecordSlouchEvent()
	Today() stats.DailyRecord
	RecentDays(n int) []stats.DailyRecord
}

// StatsHandler serves today's statistics and accepts monitor events.
type StatsHandler struct {
	tracker     Tracker
	defaultDays int
	logger      zerolog.Logger
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(tracker Tracker, defaultDays int, logger zerolog.Logger) *StatsHandler {
	if defaultDays <= 0 {
		defaultDays = stats.DefaultRecentDays
	}
	return &StatsHandler{
		tracker:     tracker,
		defaultDays: defaultDays,
		logger:      logger.With().Str("handler", "stats").Logger(),
	}
}

// GetToday returns the live record for today.
func (h *StatsHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, NewDayResponse(h.tracker.Today()))
}

// GetRecent returns the last N days, oldest first.
func (h *StatsHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	days := h.defaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRecentDays {
			WriteError(w, http.StatusBadRequest, "days must be an integer between 1 and 366")
			return
		}
		days = n
	}

	records := h.tracker.RecentDays(days)
	resp := RecentResponse{
		Days:  make([]DayResponse, 0, len(records)),
		Count: len(records),
	}
	for _, record := range records {
		resp.Days = append(resp.Days, NewDayResponse(record))
	}

	WriteJSON(w, http.StatusOK, resp)
}

// Track records a monitoring interval.
func (h *StatsHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Seconds < 0 || req.Seconds >= maxTrackSeconds || math.IsNaN(req.Seconds) || math.IsInf(req.Seconds, 0) {
		WriteError(w, http.StatusBadRequest, "seconds must be a non-negative number within range")
		return
	}

	interval := time.Duration(req.Seconds * float64(time.Second))
	h.tracker.TrackTime(interval, req.Slouching)
	metrics.ObserveTrack(req.Slouching)

	WriteJSON(w, http.StatusOK, NewDayResponse(h.tracker.Today()))
}

// RecordSlouch counts a new slouch episode.
func (h *StatsHandler) RecordSlouch(w http.ResponseWriter, r *http.Request) {
	h.tracker.RecordSlouchEvent()
	WriteJSON(w, http.StatusOK, NewDayResponse(h.tracker.Today()))
}
