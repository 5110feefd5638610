package app

import (
	"html/template"
	"time"

	"github.com/klabast/wb-services/habit-tracker/internal/habit"
)

// cellPitch is the horizontal size of one week column in the page, in pixels.
const cellPitch = 22

// Legend colors from "Less" to "More", indexed by level.
var legendColors = []string{"#ebedf0", "#c6e48b", "#7bc96f", "#239a3b", "#196127"}

var templateFuncs = template.FuncMap{
	"monthWidth": func(span int) int { return span * cellPitch },
	"levelColor": func(l habit.Level) string {
		if int(l) < 0 || int(l) >= len(legendColors) {
			return legendColors[0]
		}
		return legendColors[l]
	},
}

// HabitView is a habit plus the figures derived for the reference day.
type HabitView struct {
	habit.Habit
	DoneToday bool          `json:"doneToday"`
	Streak    int           `json:"streak"`
	Heatmap   habit.Heatmap `json:"heatmap"`
}

// PageView is everything the index page and GET /api/habits render.
type PageView struct {
	Today    string      `json:"today"`
	Habits   []HabitView `json:"habits"`
	Stats    habit.Stats `json:"stats"`
	Weekdays []string    `json:"-"`
	Legend   []string    `json:"-"`
}

// BuildPageView derives all views from a snapshot of the collection.
func BuildPageView(habits []habit.Habit, stats habit.Stats, today time.Time) PageView {
	views := make([]HabitView, 0, len(habits))
	for _, h := range habits {
		views = append(views, HabitView{
			Habit:     h,
			DoneToday: h.IsCompletedOn(today),
			Streak:    h.CurrentStreak(today),
			Heatmap:   habit.GenerateHeatmap(h.Completions, today),
		})
	}
	return PageView{
		Today:    habit.DateKey(today),
		Habits:   views,
		Stats:    stats,
		Weekdays: habit.Weekdays,
		Legend:   legendColors,
	}
}

func (s *Server) pageView(today time.Time) PageView {
	habits := s.store.Habits()
	return BuildPageView(habits, habit.ComputeStats(habits, today), today)
}
