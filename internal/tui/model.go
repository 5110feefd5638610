// Package tui is an interactive terminal front end over the habit store.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/klabast/wb-services/habit-tracker/internal/habit"
	"github.com/klabast/wb-services/habit-tracker/internal/render"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#239a3b")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#cb2431"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6a737d")).MarginTop(1)
)

// Model is the bubbletea model. Every action goes through the store; the
// model only caches a snapshot for rendering.
type Model struct {
	store  *habit.Store
	keys   KeyMap
	input  textinput.Model
	habits []habit.Habit
	cursor int
	adding bool
	detail bool
	err    error
}

// New creates a model over a loaded store.
func New(store *habit.Store) Model {
	ti := textinput.New()
	ti.Prompt = "▸ "
	ti.Placeholder = "new habit name"
	ti.CharLimit = 120

	m := Model{
		store: store,
		keys:  DefaultKeyMap(),
		input: ti,
	}
	m.refresh()
	return m
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(store *habit.Store) error {
	_, err := tea.NewProgram(New(store), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.adding {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	if m.adding {
		return m.handleAddKey(keyMsg)
	}
	return m.handleKey(keyMsg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		m.detail = false
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.habits)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Detail):
		m.detail = !m.detail && len(m.habits) > 0
	case key.Matches(msg, m.keys.Add):
		m.adding = true
		m.input.SetValue("")
		cmd := m.input.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Toggle):
		if h, ok := m.selected(); ok {
			_, m.err = m.store.ToggleToday(h.ID)
			m.refresh()
		}
	case key.Matches(msg, m.keys.Delete):
		if h, ok := m.selected(); ok {
			_, m.err = m.store.Remove(h.ID)
			m.detail = false
			m.refresh()
		}
	}
	return m, nil
}

func (m Model) handleAddKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		var h *habit.Habit
		h, m.err = m.store.Add(m.input.Value())
		m.adding = false
		m.input.Blur()
		m.refresh()
		if h != nil {
			m.cursor = len(m.habits) - 1
		}
		return m, nil
	case tea.KeyEsc:
		m.adding = false
		m.input.Blur()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// refresh re-reads the collection after a mutation.
func (m *Model) refresh() {
	m.habits = m.store.Habits()
	if m.cursor >= len(m.habits) {
		m.cursor = len(m.habits) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected() (habit.Habit, bool) {
	if len(m.habits) == 0 {
		return habit.Habit{}, false
	}
	return m.habits[m.cursor], true
}

func (m Model) View() string {
	today := m.store.Today()
	var b strings.Builder

	b.WriteString(headerStyle.Render("Habit Tracker"))
	b.WriteByte('\n')
	b.WriteString(render.Stats(m.store.AggregateStats(today)))
	b.WriteString("\n\n")

	if h, ok := m.selected(); ok && m.detail {
		b.WriteString(render.HabitCard(h, today))
	} else if len(m.habits) == 0 {
		b.WriteString("No habits yet. Press a to add your first habit!")
	} else {
		for i, h := range m.habits {
			prefix := "  "
			if i == m.cursor {
				prefix = cursorStyle.Render("> ")
			}
			b.WriteString(prefix + render.HabitLine(h, today) + "\n")
		}
	}

	if m.adding {
		b.WriteString("\n\n" + m.input.View())
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(fmt.Sprintf("error: %v", m.err)))
	}
	b.WriteString("\n" + helpStyle.Render(m.help()))
	return b.String()
}

func (m Model) help() string {
	if m.adding {
		return "enter save • esc cancel"
	}
	bindings := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Toggle, m.keys.Add, m.keys.Delete, m.keys.Detail, m.keys.Quit}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
