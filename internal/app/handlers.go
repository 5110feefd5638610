package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/klabast/wb-services/habit-tracker/internal/habit"
)

// ServeIndex renders the habit page
func (s *Server) ServeIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, s.pageView(s.store.Today())); err != nil {
		s.log.Error("rendering index failed", zap.Error(err))
		http.Error(w, ErrInternalServer, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Warn("writing index failed", zap.Error(err))
	}
}

// AddHabitForm handles the add form and redirects back to the page
func (s *Server) AddHabitForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Add(r.FormValue("name")); err != nil {
		s.persistFailed(w, "add", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ToggleHabitForm marks or unmarks today for a habit
func (s *Server) ToggleHabitForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := s.store.ToggleToday(id); err != nil {
		s.persistFailed(w, "toggle", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// DeleteHabitForm deletes a habit
func (s *Server) DeleteHabitForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := s.store.Remove(id); err != nil {
		s.persistFailed(w, "remove", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ListHabits returns all habits with streaks, heatmaps and stats
// Query param: date (optional, defaults to today)
func (s *Server) ListHabits(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.queryDate(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.pageView(ref))
}

// AddHabit creates a habit from {"name": "..."}
// An empty name is ignored rather than rejected.
func (s *Server) AddHabit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidBody, http.StatusBadRequest)
		return
	}

	h, err := s.store.Add(req.Name)
	if err != nil {
		s.persistFailed(w, "add", err)
		return
	}
	if h == nil {
		s.writeStatus(w, StatusIgnored, nil)
		return
	}
	s.writeJSON(w, http.StatusCreated, h)
}

// DeleteHabit removes a habit; unknown ids are ignored
func (s *Server) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	removed, err := s.store.Remove(id)
	if err != nil {
		s.persistFailed(w, "remove", err)
		return
	}
	if !removed {
		s.writeStatus(w, StatusIgnored, nil)
		return
	}
	s.writeStatus(w, StatusOK, nil)
}

// ToggleHabit flips completion for {"date": "YYYY-MM-DD"} (default today)
func (s *Server) ToggleHabit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, ErrInvalidBody, http.StatusBadRequest)
		return
	}
	date, ok := s.parseDateOrToday(w, req.Date)
	if !ok {
		return
	}

	h, found, err := s.store.Toggle(id, date)
	if err != nil {
		s.persistFailed(w, "toggle", err)
		return
	}
	if !found {
		s.writeStatus(w, StatusIgnored, nil)
		return
	}

	s.writeStatus(w, StatusOK, map[string]any{
		"date":      habit.DateKey(date),
		"completed": h.IsCompletedOn(date),
		"streak":    h.CurrentStreak(s.store.Today()),
	})
}

// GetHeatmap returns the heatmap grid for one habit
// Query param: date (optional end of the window, defaults to today)
func (s *Server) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ref, ok := s.queryDate(w, r)
	if !ok {
		return
	}

	h, found := s.store.Get(id)
	if !found {
		http.Error(w, "Habit not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, habit.GenerateHeatmap(h.Completions, ref))
}

// GetStats returns aggregate stats
// Query param: date (optional, defaults to today)
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.queryDate(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.store.AggregateStats(ref))
}

// Healthz reports liveness
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	s.writeStatus(w, StatusOK, map[string]any{"habits": s.store.Len()})
}
