package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the layout of archive keys.
const DateLayout = "2006-01-02"

// DailyStats is the persisted form of one day's aggregate.
type DailyStats struct {
	Date          time.Time `json:"date"`
	TotalSeconds  float64   `json:"total_seconds"`
	SlouchSeconds float64   `json:"slouch_seconds"`
	SlouchCount   int       `json:"slouch_count"`
}

// Archive maps a "YYYY-MM-DD" date key to that day's statistics.
type Archive map[string]DailyStats

// MarshalStats encodes a single day for key/value backends.
func MarshalStats(value DailyStats) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return data, nil
}

// UnmarshalStats decodes a single day, wrapping failures in ErrCorrupt.
func UnmarshalStats(data []byte) (DailyStats, error) {
	var stats DailyStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return DailyStats{}, fmt.Errorf("%w: unmarshal value: %v", ErrCorrupt, err)
	}
	return stats, nil
}
