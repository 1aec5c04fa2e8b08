package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/goodtune/posturr/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleRecords() []stats.DailyRecord {
	day := time.Date(2024, 7, 1, 0, 0, 0, 0, time.Local)
	return []stats.DailyRecord{
		{Date: day, TotalSeconds: 3600, SlouchSeconds: 900, SlouchCount: 3},
		stats.NewDailyRecord(day.AddDate(0, 0, 1)),
		{Date: day.AddDate(0, 0, 2), TotalSeconds: 1800, SlouchSeconds: 0, SlouchCount: 0},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleRecords())

	require.Len(t, s.Days, 3)
	assert.Equal(t, "2024-07-01", s.Days[0].Date)
	assert.Equal(t, 75.0, s.Days[0].PostureScore)
	assert.Equal(t, 100.0, s.Days[1].PostureScore)
	assert.Equal(t, 2, s.TrackedDays)
	assert.Equal(t, 5400.0, s.TotalSeconds)
	assert.Equal(t, 3, s.SlouchCount)
	assert.InDelta(t, 87.5, s.AverageScore, 0.001)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Empty(t, s.Days)
	assert.Equal(t, 0, s.TrackedDays)
	assert.Equal(t, 100.0, s.AverageScore)
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleRecords(), FormatTable))

	out := buf.String()
	assert.Contains(t, out, "DATE")
	assert.Contains(t, out, "2024-07-01")
	assert.Contains(t, out, "2024-07-03")
	assert.Contains(t, out, "1h0m0s")
	assert.Contains(t, out, "15m0s")
	assert.Contains(t, out, "2 of 3 days tracked")
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleRecords(), FormatJSON))

	var s Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &s))
	assert.Len(t, s.Days, 3)
	assert.Equal(t, 3, s.Days[0].SlouchCount)
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleRecords(), FormatYAML))

	var s Summary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &s))
	assert.Len(t, s.Days, 3)
	assert.Equal(t, "2024-07-03", s.Days[2].Date)
	assert.Contains(t, buf.String(), "slouch_count: 3")
}

func TestRenderUnsupportedFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, sampleRecords(), "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report format")
}
