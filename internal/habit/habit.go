package habit

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the ISO calendar date format used for completion keys.
	DateLayout = "2006-01-02"

	// WindowDays is the trailing window used for heatmaps and streak capping.
	WindowDays = 365
)

// Habit is a user-defined activity tracked for daily completion.
type Habit struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Completions map[string]bool `json:"completions"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// IsCompletedOn reports whether the habit is marked done on date.
func (h Habit) IsCompletedOn(date time.Time) bool {
	return h.Completions[DateKey(date)]
}

// CurrentStreak counts consecutive completed days walking backward from ref
// (inclusive). An unmarked ref yields 0. The walk stops after WindowDays.
func (h Habit) CurrentStreak(ref time.Time) int {
	day := Day(ref)
	streak := 0
	for i := 0; i < WindowDays; i++ {
		if !h.Completions[DateKey(day.AddDate(0, 0, -i))] {
			break
		}
		streak++
	}
	return streak
}

func (h Habit) clone() Habit {
	c := h
	c.Completions = make(map[string]bool, len(h.Completions))
	for k, v := range h.Completions {
		c.Completions[k] = v
	}
	return c
}

// Day returns the calendar date of t (in t's location) as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats the calendar date of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return Day(t).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatLabel formats a date the way cell tooltips show it, e.g. "Jan 2, 2006".
func FormatLabel(t time.Time) string {
	return t.Format("Jan 2, 2006")
}
