package stats

import (
	"time"

	"github.com/goodtune/posturr/internal/storage"
)

// DefaultRecentDays is the window used by LastWeek.
const DefaultRecentDays = 7

// DailyRecord is one calendar day's aggregate.
type DailyRecord struct {
	Date          time.Time
	TotalSeconds  float64
	SlouchSeconds float64
	SlouchCount   int
}

// NewDailyRecord returns a zeroed record for the given date.
func NewDailyRecord(date time.Time) DailyRecord {
	return DailyRecord{Date: date}
}

// Key returns the canonical date key of the record.
func (r DailyRecord) Key() string {
	return DateKey(r.Date)
}

// PostureScore is the share of tracked time not spent slouching, in [0, 100].
// Days without tracked time score 100.
func (r DailyRecord) PostureScore() float64 {
	if r.TotalSeconds <= 0 {
		return 100
	}
	ratio := 1 - r.SlouchSeconds/r.TotalSeconds
	return max(0, min(1, ratio)) * 100
}

// IsZero reports whether nothing was recorded for the day.
func (r DailyRecord) IsZero() bool {
	return r.TotalSeconds == 0 && r.SlouchSeconds == 0 && r.SlouchCount == 0
}

// DateKey formats t as "YYYY-MM-DD" in t's own location.
func DateKey(t time.Time) string {
	return t.Format(storage.DateLayout)
}

// startOfDay returns local midnight of the day containing t.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func recordFromStorage(s storage.DailyStats) DailyRecord {
	return DailyRecord{
		Date:          s.Date,
		TotalSeconds:  s.TotalSeconds,
		SlouchSeconds: s.SlouchSeconds,
		SlouchCount:   s.SlouchCount,
	}
}

func (r DailyRecord) toStorage() storage.DailyStats {
	return storage.DailyStats{
		Date:          r.Date,
		TotalSeconds:  r.TotalSeconds,
		SlouchSeconds: r.SlouchSeconds,
		SlouchCount:   r.SlouchCount,
	}
}
