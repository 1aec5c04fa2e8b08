package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/goodtune/posturr/internal/stats"
)

// TrackRequest reports a monitoring interval.
type TrackRequest struct {
	Seconds   float64 `json:"seconds"`
	Slouching bool    `json:"slouching"`
}

// DayResponse is one day's statistics as served by the API.
type DayResponse struct {
	Date          string  `json:"date"`
	TotalSeconds  float64 `json:"total_seconds"`
	SlouchSeconds float64 `json:"slouch_seconds"`
	SlouchCount   int     `json:"slouch_count"`
	PostureScore  float64 `json:"posture_score"`
}

// RecentResponse wraps a window of days, oldest first.
type RecentResponse struct {
	Days  []DayResponse `json:"days"`
	Count int           `json:"count"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// NewDayResponse converts a record for the wire.
func NewDayResponse(record stats.DailyRecord) DayResponse {
	return DayResponse{
		Date:          record.Key(),
		TotalSeconds:  record.TotalSeconds,
		SlouchSeconds: record.SlouchSeconds,
		SlouchCount:   record.SlouchCount,
		PostureScore:  record.PostureScore(),
	}
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Internal Server Error","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}
