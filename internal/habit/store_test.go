package habit

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klabast/wb-services/habit-tracker/internal/storage"
)

var refNow = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

// fixedClock returns a clock that advances by one millisecond per call so
// successive ids differ without sleeping.
func fixedClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		cur := t
		t = t.Add(time.Millisecond)
		return cur
	}
}

func newTestStore(t *testing.T, blob storage.Blob) *Store {
	t.Helper()
	s := NewStore(blob, WithClock(fixedClock(refNow)), WithLocation(time.UTC))
	s.Load()
	return s
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

type countingRecorder struct {
	ops         []string
	persistErrs int
}

func (r *countingRecorder) RecordMutation(op string) { r.ops = append(r.ops, op) }
func (r *countingRecorder) RecordPersistError()     { r.persistErrs++ }

func TestStore_Add(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryStore())

	for i, name := range []string{"Read", "  Run  ", "Meditate"} {
		h, err := s.Add(name)
		require.NoError(t, err)
		require.NotNil(t, h)
		assert.Equal(t, i+1, s.Len())
		assert.Empty(t, h.Completions)
		assert.NotNil(t, h.Completions)
	}

	habits := s.Habits()
	assert.Equal(t, "Run", habits[1].Name, "names are trimmed")
	assert.Equal(t, []string{"Read", "Run", "Meditate"}, []string{habits[0].Name, habits[1].Name, habits[2].Name})
	assert.Less(t, habits[0].ID, habits[1].ID)
	assert.Less(t, habits[1].ID, habits[2].ID)
	assert.Equal(t, refNow.UnixMilli(), habits[0].ID)
	assert.True(t, habits[0].CreatedAt.Equal(refNow))
}

func TestStore_AddEmptyNameIsNoop(t *testing.T) {
	blob := storage.NewMemoryStore()
	s := newTestStore(t, blob)

	for _, name := range []string{"", "   ", "\t\n"} {
		h, err := s.Add(name)
		assert.NoError(t, err)
		assert.Nil(t, h)
	}
	assert.Equal(t, 0, s.Len())

	_, err := blob.Get(DefaultKey)
	assert.ErrorIs(t, err, storage.ErrNotFound, "a rejected add must not persist")
}

func TestStore_IDsStayUniqueWithFrozenClock(t *testing.T) {
	frozen := func() time.Time { return refNow }
	s := NewStore(storage.NewMemoryStore(), WithClock(frozen))
	s.Load()

	a, _ := s.Add("a")
	b, _ := s.Add("b")
	c, _ := s.Add("c")
	assert.Equal(t, a.ID+1, b.ID)
	assert.Equal(t, b.ID+1, c.ID)
}

func TestStore_Remove(t *testing.T) {
	blob := storage.NewMemoryStore()
	s := newTestStore(t, blob)
	a, _ := s.Add("a")
	b, _ := s.Add("b")

	removed, err := s.Remove(12345)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 2, s.Len())

	removed, err = s.Remove(a.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	habits := s.Habits()
	require.Len(t, habits, 1)
	assert.Equal(t, b.ID, habits[0].ID)

	reloaded := newTestStore(t, blob)
	_, ok := reloaded.Get(a.ID)
	assert.False(t, ok, "removal should be persisted")
	assert.Equal(t, 1, reloaded.Len())
}

func TestStore_ToggleReturnsUpdatedHabit(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryStore())
	h, _ := s.Add("Read")

	got, found, err := s.Toggle(h.ID, date(t, "2024-01-15"))
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.IsCompletedOn(date(t, "2024-01-15")))

	// The returned copy is detached from the store.
	got.Completions["2024-01-01"] = true
	stored, _ := s.Get(h.ID)
	assert.False(t, stored.IsCompletedOn(date(t, "2024-01-01")))

	_, found, err = s.Toggle(999, date(t, "2024-01-15"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_ToggleIsItsOwnInverse(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryStore())
	h, _ := s.Add("Read")
	d := date(t, "2024-01-10")

	ok, err := s.ToggleCompletion(h.ID, d)
	require.NoError(t, err)
	require.True(t, ok)

	got, _ := s.Get(h.ID)
	assert.True(t, s.IsCompletedOn(got, d))
	assert.Equal(t, 1, s.CurrentStreak(got, d))
	assert.Equal(t, map[string]bool{"2024-01-10": true}, got.Completions)

	_, err = s.ToggleCompletion(h.ID, d)
	require.NoError(t, err)

	got, _ = s.Get(h.ID)
	assert.False(t, got.IsCompletedOn(d))
	assert.Empty(t, got.Completions, "unmarking deletes the key instead of storing false")
}

func TestStore_ToggleUnknownID(t *testing.T) {
	blob := storage.NewMemoryStore()
	s := newTestStore(t, blob)

	ok, err := s.ToggleCompletion(42, refNow)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ToggleToday(t *testing.T) {
	// 23:30 in New York on Jan 14 is already Jan 15 in UTC.
	ny := time.FixedZone("EST", -5*60*60)
	now := time.Date(2024, 1, 15, 4, 30, 0, 0, time.UTC)

	s := NewStore(storage.NewMemoryStore(), WithClock(func() time.Time { return now }), WithLocation(ny))
	s.Load()
	h, _ := s.Add("Read")

	_, err := s.ToggleToday(h.ID)
	require.NoError(t, err)

	got, _ := s.Get(h.ID)
	assert.Equal(t, map[string]bool{"2024-01-14": true}, got.Completions)
	assert.Equal(t, "2024-01-14", DateKey(s.Today()))
}

func TestStore_HabitsReturnsCopies(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryStore())
	h, _ := s.Add("Read")

	habits := s.Habits()
	habits[0].Name = "changed"
	habits[0].Completions["2024-01-01"] = true

	got, ok := s.Get(h.ID)
	require.True(t, ok)
	assert.Equal(t, "Read", got.Name)
	assert.Empty(t, got.Completions)
}

func TestStore_RoundTrip(t *testing.T) {
	blob := storage.NewMemoryStore()
	s := newTestStore(t, blob)

	a, _ := s.Add("Read")
	b, _ := s.Add("Run")
	c, _ := s.Add("Write")
	for _, d := range []string{"2024-01-13", "2024-01-14", "2024-01-15"} {
		_, err := s.ToggleCompletion(a.ID, date(t, d))
		require.NoError(t, err)
	}
	_, err := s.ToggleCompletion(c.ID, date(t, "2023-12-31"))
	require.NoError(t, err)
	_ = b

	reloaded := newTestStore(t, blob)
	if diff := cmp.Diff(s.Habits(), reloaded.Habits()); diff != "" {
		t.Errorf("reloaded habits mismatch (-want +got):\n%s", diff)
	}

	// Ids keep increasing after a reload.
	d, _ := reloaded.Add("Later")
	assert.Greater(t, d.ID, c.ID)
}

func TestStore_LoadFailsSoft(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"malformed json", `{not json`},
		{"wrong shape", `{"id": 1}`},
		{"wrong completion type", `[{"id":1,"name":"x","completions":{"2024-01-01":"yes"}}]`},
		{"null", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := storage.NewMemoryStore()
			require.NoError(t, blob.Set(DefaultKey, []byte(tt.blob)))

			s := newTestStore(t, blob)
			assert.Equal(t, 0, s.Len())
			assert.Equal(t, Stats{}, s.AggregateStats(refNow))
		})
	}
}

func TestStore_LoadMissingBlob(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryStore())
	assert.Equal(t, 0, s.Len())
}

func TestStore_LoadSanitizes(t *testing.T) {
	blob := storage.NewMemoryStore()
	raw := `[
		{"id":1,"name":"Read","completions":{"2024-01-15":true,"2024-01-14":false,"yesterday":true},"createdAt":"2024-01-01T10:00:00.000Z"},
		{"id":1,"name":"Duplicate","completions":{},"createdAt":"2024-01-01T10:00:00.000Z"},
		{"id":2,"name":"Run","createdAt":"2024-01-02T10:00:00.000Z"}
	]`
	require.NoError(t, blob.Set(DefaultKey, []byte(raw)))

	s := newTestStore(t, blob)
	habits := s.Habits()
	require.Len(t, habits, 2)
	assert.Equal(t, map[string]bool{"2024-01-15": true}, habits[0].Completions)
	assert.Equal(t, "Run", habits[1].Name)
	assert.NotNil(t, habits[1].Completions)
}

func TestStore_LoadDropsUnnamedHabits(t *testing.T) {
	blob := storage.NewMemoryStore()
	raw := `[
		{"id":1,"name":"","createdAt":"2024-01-01T10:00:00Z"},
		{"id":2,"name":"   ","createdAt":"2024-01-01T10:00:00Z"},
		{"id":2,"name":"  Stretch  ","createdAt":"2024-01-01T10:00:00Z"},
		{"id":3,"createdAt":"2024-01-01T10:00:00Z"}
	]`
	require.NoError(t, blob.Set(DefaultKey, []byte(raw)))

	s := newTestStore(t, blob)
	habits := s.Habits()
	require.Len(t, habits, 1)
	assert.Equal(t, int64(2), habits[0].ID)
	assert.Equal(t, "Stretch", habits[0].Name)
}

func TestStore_ReloadWhileAnotherStorePersists(t *testing.T) {
	fs, err := storage.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	writer := newTestStore(t, fs)
	for _, name := range []string{"Read", "Run", "Write"} {
		_, err := writer.Add(name)
		require.NoError(t, err)
	}
	reader := newTestStore(t, fs)
	require.Equal(t, 3, reader.Len())

	const rounds = 300
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				if err := writer.Persist(); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	var empty int
	for i := 0; i < rounds; i++ {
		reader.Load()
		if reader.Len() != 3 {
			empty++
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.Zero(t, empty, "reloads that saw a partial collection: %d/%d", empty, rounds)
}

func TestStore_PersistFailureKeepsMemoryState(t *testing.T) {
	blob := storage.NewMemoryStore()
	rec := &countingRecorder{}
	s := NewStore(blob, WithClock(fixedClock(refNow)), WithRecorder(rec))
	s.Load()

	blob.FailSet = errors.New("disk full")
	h, err := s.Add("Read")
	assert.Error(t, err)
	require.NotNil(t, h)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []string{"add"}, rec.ops)
	assert.Equal(t, 1, rec.persistErrs)
}

func TestStore_PersistWritesJSONLayout(t *testing.T) {
	blob := storage.NewMemoryStore()
	s := newTestStore(t, blob)
	require.NoError(t, s.Persist())

	data, err := blob.Get(DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	h, _ := s.Add("Read")
	_, err = s.ToggleCompletion(h.ID, date(t, "2024-01-15"))
	require.NoError(t, err)

	data, err = blob.Get(DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1705311000000,"name":"Read","completions":{"2024-01-15":true},"createdAt":"2024-01-15T09:30:00Z"}]`, string(data))
}
