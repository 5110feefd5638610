package habit

import "time"

// Level is the intensity of a heatmap cell on a 0-4 scale. Only LevelNone and
// LevelFull are produced; 1-3 are reserved for multi-completion days.
type Level int

const (
	LevelNone Level = 0
	LevelFull Level = 4
)

// Weekdays are the row labels of the heatmap, Sunday first.
var Weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Cell is one day of the heatmap grid.
type Cell struct {
	Date      string `json:"date"`
	Level     Level  `json:"level"`
	InRange   bool   `json:"inRange"`
	Completed bool   `json:"completed"`
	Label     string `json:"label"`
}

// MonthLabel marks the week column where a month starts and how many week
// columns it spans.
type MonthLabel struct {
	Name string `json:"name"`
	Week int    `json:"week"`
	Span int    `json:"span"`
}

// Heatmap is a Sunday-first grid of weeks covering the trailing window.
type Heatmap struct {
	Weeks       [][]Cell     `json:"weeks"`
	Months      []MonthLabel `json:"months"`
	WindowStart string       `json:"windowStart"`
	WindowEnd   string       `json:"windowEnd"`
}

// GenerateHeatmap builds the grid for the WindowDays days ending at today.
// The grid starts at the Sunday on or before the window start; padding days
// before the window are emitted out of range with level 0. The walk stops at
// today, so the last week may be partial.
func GenerateHeatmap(completions map[string]bool, today time.Time) Heatmap {
	end := Day(today)
	start := end.AddDate(0, 0, -(WindowDays - 1))
	gridStart := start.AddDate(0, 0, -int(start.Weekday()))

	hm := Heatmap{
		WindowStart: start.Format(DateLayout),
		WindowEnd:   end.Format(DateLayout),
	}

	lastMonth := time.Month(0)
	for day := gridStart; !day.After(end); {
		week := make([]Cell, 0, 7)
		for i := 0; i < 7 && !day.After(end); i++ {
			if i == 0 && day.Month() != lastMonth {
				lastMonth = day.Month()
				hm.Months = append(hm.Months, MonthLabel{
					Name: day.Format("Jan"),
					Week: len(hm.Weeks),
				})
			}
			week = append(week, newCell(completions, day, start, end))
			day = day.AddDate(0, 0, 1)
		}
		hm.Weeks = append(hm.Weeks, week)
	}

	for i := range hm.Months {
		next := len(hm.Weeks)
		if i+1 < len(hm.Months) {
			next = hm.Months[i+1].Week
		}
		hm.Months[i].Span = next - hm.Months[i].Week
	}
	return hm
}

func newCell(completions map[string]bool, day, start, end time.Time) Cell {
	key := day.Format(DateLayout)
	inRange := !day.Before(start) && !day.After(end)
	completed := inRange && completions[key]

	c := Cell{
		Date:      key,
		InRange:   inRange,
		Completed: completed,
		Label:     FormatLabel(day),
	}
	if completed {
		c.Level = LevelFull
		c.Label += " - Completed"
	}
	return c
}

// Cells returns the number of emitted cells, padding included.
func (h Heatmap) Cells() int {
	n := 0
	for _, w := range h.Weeks {
		n += len(w)
	}
	return n
}
