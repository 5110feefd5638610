package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(filepath.Join(dir, "data"), nil)
	require.NoError(t, err)

	t.Run("missing key", func(t *testing.T) {
		_, err := fs.Get("habits")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, fs.Set("habits", []byte(`[{"id":1}]`)))
		got, err := fs.Get("habits")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":1}]`, string(got))
	})

	t.Run("overwrite keeps backup", func(t *testing.T) {
		require.NoError(t, fs.Set("habits", []byte(`[]`)))

		got, err := fs.Get("habits")
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(got))

		backup, err := os.ReadFile(fs.Path("habits") + BackupSuffix)
		require.NoError(t, err)
		assert.Equal(t, `[{"id":1}]`, string(backup))

		leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(fs.Path("habits")), "*"+TmpSuffix))
		require.NoError(t, err)
		assert.Empty(t, leftovers, "temp files should be renamed away")
	})

	t.Run("backup follows each write", func(t *testing.T) {
		require.NoError(t, fs.Set("habits", []byte(`[{"id":2}]`)))
		require.NoError(t, fs.Set("habits", []byte(`[{"id":3}]`)))

		backup, err := os.ReadFile(fs.Path("habits") + BackupSuffix)
		require.NoError(t, err)
		assert.Equal(t, `[{"id":2}]`, string(backup))
	})

	t.Run("invalid keys", func(t *testing.T) {
		for _, key := range []string{"", "../escape", `a\b`, ".."} {
			assert.ErrorIs(t, fs.Set(key, nil), ErrInvalidKey, key)
			_, err := fs.Get(key)
			assert.ErrorIs(t, err, ErrInvalidKey, key)
		}
	})
}

func TestFileStore_ReadersNeverSeeMissingKey(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	reader, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, writer.Set("habits", []byte(`[{"id":0}]`)))

	const writes = 500
	done := make(chan struct{})
	var writeErr error
	go func() {
		defer close(done)
		for i := 0; i < writes; i++ {
			if err := writer.Set("habits", []byte(fmt.Sprintf(`[{"id":%d}]`, i))); err != nil {
				writeErr = err
				return
			}
		}
	}()

	var reads, missing int
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		data, err := reader.Get("habits")
		reads++
		if errors.Is(err, ErrNotFound) {
			missing++
			continue
		}
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), `[{"id":`), "partial read %q", data)
	}

	require.NoError(t, writeErr)
	assert.Zero(t, missing, "reads that found no file: %d/%d", missing, reads)
}

func TestFileStore_ConcurrentWriters(t *testing.T) {
	dir := t.TempDir()

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for w := 0; w < 4; w++ {
		fs, err := NewFileStore(dir, nil)
		require.NoError(t, err)
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if err := fs.Set("habits", []byte(fmt.Sprintf(`[{"id":%d}]`, w))); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	fs, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	data, err := fs.Get("habits")
	require.NoError(t, err)
	assert.Regexp(t, `^\[\{"id":[0-3]\}\]$`, string(data))
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "habits.db")

	s, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)

	_, err = s.Get("habits")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set("habits", []byte(`[1]`)))
	require.NoError(t, s.Set("habits", []byte(`[2]`)))
	got, err := s.Get("habits")
	require.NoError(t, err)
	assert.Equal(t, `[2]`, string(got))
	require.NoError(t, s.Close())

	// Data survives reopening.
	s, err = NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err = s.Get("habits")
	require.NoError(t, err)
	assert.Equal(t, `[2]`, string(got))
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	_, err := m.Get("habits")
	assert.ErrorIs(t, err, ErrNotFound)

	value := []byte("abc")
	require.NoError(t, m.Set("habits", value))
	value[0] = 'x'

	got, err := m.Get("habits")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got), "stored value must not alias the caller's slice")

	m.FailSet = os.ErrPermission
	assert.ErrorIs(t, m.Set("habits", nil), os.ErrPermission)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		driver  string
		want    any
		wantErr bool
	}{
		{driver: "", want: &FileStore{}},
		{driver: DriverFile, want: &FileStore{}},
		{driver: DriverSQLite, want: &SQLiteStore{}},
		{driver: DriverMemory, want: &MemoryStore{}},
		{driver: "postgres", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			b, err := Open(ctx, Options{Driver: tt.driver, Dir: dir})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer b.Close()
			assert.IsType(t, tt.want, b)
		})
	}
}
