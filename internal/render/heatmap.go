// Package render draws habits, stats and heatmaps for the terminal.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/klabast/wb-services/habit-tracker/internal/habit"
)

// Palette matches the web legend, indexed by level.
var Palette = []lipgloss.Color{"#ebedf0", "#c6e48b", "#7bc96f", "#239a3b", "#196127"}

const (
	cellGlyph  = "■"
	cellWidth  = 2
	labelWidth = 4
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6a737d"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#239a3b")).Bold(true)
	statValStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#196127"))
)

func levelStyle(l habit.Level) lipgloss.Style {
	i := int(l)
	if i < 0 || i >= len(Palette) {
		i = 0
	}
	return lipgloss.NewStyle().Foreground(Palette[i])
}

// Heatmap renders the grid as seven weekday rows under a month header.
// Out-of-range padding cells are left blank.
func Heatmap(hm habit.Heatmap) string {
	var b strings.Builder
	b.WriteString(monthHeader(hm))
	b.WriteByte('\n')

	for day := 0; day < 7; day++ {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%-*s", labelWidth, habit.Weekdays[day])))
		for _, week := range hm.Weeks {
			if day >= len(week) || !week[day].InRange {
				b.WriteString(strings.Repeat(" ", cellWidth))
				continue
			}
			b.WriteString(levelStyle(week[day].Level).Render(cellGlyph))
			b.WriteByte(' ')
		}
		if day < 6 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// monthHeader places each month name above its first week column; names
// that do not fit in their span are dropped.
func monthHeader(hm habit.Heatmap) string {
	line := []rune(strings.Repeat(" ", labelWidth+len(hm.Weeks)*cellWidth))
	for _, m := range hm.Months {
		if m.Span*cellWidth < len(m.Name)+1 {
			continue
		}
		col := labelWidth + m.Week*cellWidth
		copy(line[col:], []rune(m.Name))
	}
	return mutedStyle.Render(strings.TrimRight(string(line), " "))
}

// Legend renders the "Less ... More" scale.
func Legend() string {
	parts := []string{mutedStyle.Render("Less")}
	for i := range Palette {
		parts = append(parts, levelStyle(habit.Level(i)).Render(cellGlyph))
	}
	parts = append(parts, mutedStyle.Render("More"))
	return strings.Join(parts, " ")
}

// Stats renders the aggregate figures on one line.
func Stats(s habit.Stats) string {
	return fmt.Sprintf("%s %s   %s %s   %s %s",
		mutedStyle.Render("Total Habits:"), statValStyle.Render(fmt.Sprint(s.Total)),
		mutedStyle.Render("Completed Today:"), statValStyle.Render(fmt.Sprint(s.CompletedToday)),
		mutedStyle.Render("Best Streak:"), statValStyle.Render(fmt.Sprint(s.MaxStreak)),
	)
}

// HabitLine renders one habit row for lists.
func HabitLine(h habit.Habit, today time.Time) string {
	mark := mutedStyle.Render("[ ]")
	if h.IsCompletedOn(today) {
		mark = doneStyle.Render("[✓]")
	}
	return fmt.Sprintf("%s %s %s %s",
		mark,
		titleStyle.Render(h.Name),
		mutedStyle.Render(fmt.Sprintf("#%d", h.ID)),
		mutedStyle.Render(fmt.Sprintf("streak %d", h.CurrentStreak(today))),
	)
}

// HabitCard renders a habit with its heatmap.
func HabitCard(h habit.Habit, today time.Time) string {
	hm := habit.GenerateHeatmap(h.Completions, today)
	return lipgloss.JoinVertical(lipgloss.Left,
		HabitLine(h, today),
		Heatmap(hm),
		Legend(),
	)
}
