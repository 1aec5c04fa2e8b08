// Package report renders daily statistics for the terminal and for export.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/goodtune/posturr/internal/stats"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// barWidth is the number of cells used by a 100% score.
const barWidth = 20

var (
	green  = lipgloss.Color("#a6e3a1")
	yellow = lipgloss.Color("#f9e2af")
	red    = lipgloss.Color("#f38ba8")
	muted  = lipgloss.Color("#a6adc8")

	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(muted)
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
)

// Day is the exported form of one day.
type Day struct {
	Date          string  `json:"date" yaml:"date"`
	TotalSeconds  float64 `json:"total_seconds" yaml:"total_seconds"`
	SlouchSeconds float64 `json:"slouch_seconds" yaml:"slouch_seconds"`
	SlouchCount   int     `json:"slouch_count" yaml:"slouch_count"`
	PostureScore  float64 `json:"posture_score" yaml:"posture_score"`
}

// Summary aggregates a window of days.
type Summary struct {
	Days          []Day   `json:"days" yaml:"days"`
	TrackedDays   int     `json:"tracked_days" yaml:"tracked_days"`
	TotalSeconds  float64 `json:"total_seconds" yaml:"total_seconds"`
	SlouchSeconds float64 `json:"slouch_seconds" yaml:"slouch_seconds"`
	SlouchCount   int     `json:"slouch_count" yaml:"slouch_count"`
	AverageScore  float64 `json:"average_score" yaml:"average_score"`
}

// Summarize converts records and computes window totals. The average score
// only counts days with tracked time.
func Summarize(records []stats.DailyRecord) Summary {
	s := Summary{Days: make([]Day, 0, len(records))}

	var scoreSum float64
	for _, r := range records {
		s.Days = append(s.Days, Day{
			Date:          r.Key(),
			TotalSeconds:  r.TotalSeconds,
			SlouchSeconds: r.SlouchSeconds,
			SlouchCount:   r.SlouchCount,
			PostureScore:  r.PostureScore(),
		})
		s.TotalSeconds += r.TotalSeconds
		s.SlouchSeconds += r.SlouchSeconds
		s.SlouchCount += r.SlouchCount
		if r.TotalSeconds > 0 {
			s.TrackedDays++
			scoreSum += r.PostureScore()
		}
	}

	s.AverageScore = 100
	if s.TrackedDays > 0 {
		s.AverageScore = scoreSum / float64(s.TrackedDays)
	}
	return s
}

// Render writes records to w in the given format.
func Render(w io.Writer, records []stats.DailyRecord, format string) error {
	summary := Summarize(records)

	switch format {
	case "", FormatTable:
		_, err := io.WriteString(w, renderTable(summary))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("failed to encode json report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("failed to encode yaml report: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

func renderTable(s Summary) string {
	rows := [][]string{{"DATE", "TRACKED", "SLOUCHING", "EVENTS", "SCORE", ""}}
	for _, d := range s.Days {
		rows = append(rows, []string{
			d.Date,
			formatDuration(d.TotalSeconds),
			formatDuration(d.SlouchSeconds),
			fmt.Sprintf("%d", d.SlouchCount),
			fmt.Sprintf("%.0f", d.PostureScore),
			bar(d),
		})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			style := cellStyle.Width(widths[j] + 2)
			if i == 0 {
				style = style.Inherit(headerStyle)
			}
			cells[j] = style.Render(cell)
		}
		b.WriteString(strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, cells...), " "))
		b.WriteString("\n")
	}

	b.WriteString(mutedStyle.Render(fmt.Sprintf(
		"%d of %d days tracked, %s total, %d slouch events, average score %.0f",
		s.TrackedDays, len(s.Days), formatDuration(s.TotalSeconds), s.SlouchCount, s.AverageScore,
	)))
	b.WriteString("\n")

	return b.String()
}

func bar(d Day) string {
	if d.TotalSeconds <= 0 {
		return mutedStyle.Render(strings.Repeat("·", barWidth))
	}
	filled := int(d.PostureScore/100*barWidth + 0.5)
	return lipgloss.NewStyle().Foreground(scoreColor(d.PostureScore)).Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", barWidth-filled))
}

func scoreColor(score float64) lipgloss.Color {
	switch {
	case score >= 80:
		return green
	case score >= 60:
		return yellow
	default:
		return red
	}
}

func formatDuration(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}
