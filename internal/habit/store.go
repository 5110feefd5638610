package habit

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/klabast/wb-services/habit-tracker/internal/storage"
)

// DefaultKey is the well-known storage key holding the habit collection.
const DefaultKey = "habits"

// Recorder receives store mutation events (implemented by the metrics package).
type Recorder interface {
	RecordMutation(op string)
	RecordPersistError()
}

type nopRecorder struct{}

func (nopRecorder) RecordMutation(string) {}
func (nopRecorder) RecordPersistError()   {}

// Store holds the ordered habit collection and persists it to a blob after
// every mutation. It is safe for concurrent use; operations are serialized.
type Store struct {
	mu     sync.RWMutex
	blob   storage.Blob
	key    string
	habits []Habit
	lastID int64

	now func() time.Time
	loc *time.Location
	log *zap.Logger
	rec Recorder
}

// Option configures a Store.
type Option func(*Store)

// WithKey sets the storage key (default "habits").
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the wall clock (used for ids, timestamps and "today").
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the time zone that decides the current calendar date.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRecorder sets the mutation recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.rec = r
		}
	}
}

// NewStore creates an empty store backed by blob. Call Load to read the
// persisted collection.
func NewStore(blob storage.Blob, opts ...Option) *Store {
	s := &Store{
		blob: blob,
		key:  DefaultKey,
		now:  time.Now,
		loc:  time.Local,
		log:  zap.NewNop(),
		rec:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar date in the store's time zone.
func (s *Store) Today() time.Time {
	return Day(s.now().In(s.loc))
}

// Load replaces the in-memory collection with the persisted one. A missing,
// unreadable or malformed blob yields an empty collection.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.habits = nil
	s.lastID = 0

	data, err := s.blob.Get(s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("reading habits failed, starting empty", zap.String("key", s.key), zap.Error(err))
		}
		return
	}

	habits, err := decodeHabits(data)
	if err != nil {
		s.log.Warn("malformed habits blob, starting empty", zap.String("key", s.key), zap.Error(err))
		return
	}

	s.habits = habits
	for _, h := range habits {
		if h.ID > s.lastID {
			s.lastID = h.ID
		}
	}
	s.log.Debug("habits loaded", zap.Int("count", len(habits)))
}

// Add appends a new habit named name (trimmed). An empty name is a no-op and
// returns a nil habit. The returned error only reports a persistence failure;
// the habit stays in memory either way.
func (s *Store) Add(name string) (*Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	h := Habit{
		ID:          s.nextID(now),
		Name:        name,
		Completions: map[string]bool{},
		CreatedAt:   now.UTC(),
	}
	s.habits = append(s.habits, h)
	s.rec.RecordMutation("add")

	out := h.clone()
	return &out, s.persistLocked()
}

// Remove deletes the habit with the given id. It reports whether a habit was
// removed; an unknown id is a no-op.
func (s *Store) Remove(id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false, nil
	}
	s.habits = append(s.habits[:i], s.habits[i+1:]...)
	s.rec.RecordMutation("remove")
	return true, s.persistLocked()
}

// ToggleCompletion flips the completion mark of date on habit id. It reports
// whether the habit exists; an unknown id is a no-op.
func (s *Store) ToggleCompletion(id int64, date time.Time) (bool, error) {
	_, found, err := s.Toggle(id, date)
	return found, err
}

// Toggle is ToggleCompletion returning a copy of the habit as it was right
// after the change.
func (s *Store) Toggle(id int64, date time.Time) (Habit, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Habit{}, false, nil
	}

	key := DateKey(date)
	h := &s.habits[i]
	if h.Completions == nil {
		h.Completions = map[string]bool{}
	}
	if h.Completions[key] {
		delete(h.Completions, key)
	} else {
		h.Completions[key] = true
	}
	s.rec.RecordMutation("toggle")
	return h.clone(), true, s.persistLocked()
}

// ToggleToday toggles the current calendar date.
func (s *Store) ToggleToday(id int64) (bool, error) {
	return s.ToggleCompletion(id, s.Today())
}

// IsCompletedOn reports whether h is marked on date.
func (s *Store) IsCompletedOn(h Habit, date time.Time) bool {
	return h.IsCompletedOn(date)
}

// CurrentStreak returns h's streak ending at ref.
func (s *Store) CurrentStreak(h Habit, ref time.Time) int {
	return h.CurrentStreak(ref)
}

// Habits returns a copy of the collection in display order.
func (s *Store) Habits() []Habit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Habit, len(s.habits))
	for i, h := range s.habits {
		out[i] = h.clone()
	}
	return out
}

// Get returns a copy of the habit with the given id.
func (s *Store) Get(id int64) (Habit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Habit{}, false
	}
	return s.habits[i].clone(), true
}

// Len returns the number of habits.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.habits)
}

// Persist writes the full collection to storage, overwriting the prior blob.
// Writers are serialized so concurrent calls never interleave in the backend.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// persistLocked saves without locking (caller must hold the lock)
func (s *Store) persistLocked() error {
	habits := s.habits
	if habits == nil {
		habits = []Habit{}
	}
	data, err := json.Marshal(habits)
	if err != nil {
		s.rec.RecordPersistError()
		return fmt.Errorf("encode habits: %w", err)
	}
	if err := s.blob.Set(s.key, data); err != nil {
		s.rec.RecordPersistError()
		s.log.Error("persisting habits failed", zap.String("key", s.key), zap.Error(err))
		return fmt.Errorf("persist habits: %w", err)
	}
	return nil
}

func (s *Store) indexLocked(id int64) int {
	for i := range s.habits {
		if s.habits[i].ID == id {
			return i
		}
	}
	return -1
}

// nextID derives an id from the creation time, bumped past the last issued id
// so ids stay unique and increasing.
func (s *Store) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// decodeHabits parses a persisted blob, dropping unnamed records, invalid
// completion keys, false markers and duplicate ids. Names are trimmed.
func decodeHabits(data []byte) ([]Habit, error) {
	var raw []Habit
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(raw))
	habits := make([]Habit, 0, len(raw))
	for _, h := range raw {
		h.Name = strings.TrimSpace(h.Name)
		if h.Name == "" {
			continue
		}
		if seen[h.ID] {
			continue
		}
		seen[h.ID] = true

		completions := make(map[string]bool, len(h.Completions))
		for k, v := range h.Completions {
			if !v {
				continue
			}
			if _, err := time.Parse(DateLayout, k); err != nil {
				continue
			}
			completions[k] = true
		}
		h.Completions = completions
		habits = append(habits, h)
	}
	return habits, nil
}
