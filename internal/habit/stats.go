package habit

import "time"

// Stats are the aggregate figures shown above the habit list.
type Stats struct {
	Total          int `json:"totalHabits"`
	CompletedToday int `json:"todayCompleted"`
	MaxStreak      int `json:"currentStreak"`
}

// AggregateStats computes totals for ref from the current collection.
func (s *Store) AggregateStats(ref time.Time) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ComputeStats(s.habits, ref)
}

// ComputeStats derives the figures from a snapshot, e.g. the result of
// Store.Habits, so they agree with whatever else is rendered from it.
func ComputeStats(habits []Habit, ref time.Time) Stats {
	st := Stats{Total: len(habits)}
	for _, h := range habits {
		if h.IsCompletedOn(ref) {
			st.CompletedToday++
		}
		if streak := h.CurrentStreak(ref); streak > st.MaxStreak {
			st.MaxStreak = streak
		}
	}
	return st
}
