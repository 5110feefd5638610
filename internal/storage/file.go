package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	FileSuffix      = ".json"
	BackupSuffix    = ".backup"
	TmpSuffix       = ".tmp.json"
	FilePermissions = 0644
)

// FileStore keeps each key as a JSON file inside a directory.
type FileStore struct {
	dir string
	log *zap.Logger
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{dir: dir, log: log}, nil
}

// Path returns the file holding key.
func (f *FileStore) Path(key string) string {
	return filepath.Join(f.dir, key+FileSuffix)
}

// Get reads the file for key.
func (f *FileStore) Get(key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Set writes value to a temp file in the same directory and renames it over
// the live file, so readers see either the old or the new value. The previous
// value is kept as a backup.
func (f *FileStore) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	path := f.Path(key)

	// Write to a temp file unique to this writer
	tmp, err := os.CreateTemp(f.dir, key+"-*"+TmpSuffix)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpFile := tmp.Name()
	defer os.Remove(tmpFile) // no-op once renamed

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(FilePermissions); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Create backup without moving the live file away
	if err := f.backup(path); err != nil {
		f.log.Warn("failed to create backup", zap.String("file", path), zap.Error(err))
	}

	// Rename temp file over the actual file
	if err := os.Rename(tmpFile, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// backup points path+BackupSuffix at the current contents of path, by hard
// link where the filesystem allows it and by copy otherwise.
func (f *FileStore) backup(path string) error {
	backupFile := path + BackupSuffix
	if err := os.Remove(backupFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	err := os.Link(path, backupFile)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return os.WriteFile(backupFile, data, FilePermissions)
}

// Close is a no-op; files are not held open.
func (f *FileStore) Close() error {
	return nil
}
