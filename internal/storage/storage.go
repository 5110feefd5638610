// Package storage provides key-value blob backends for the habit collection.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

var (
	// ErrNotFound is returned by Get when no value is stored under the key.
	ErrNotFound = errors.New("storage: key not found")

	// ErrInvalidKey is returned for empty keys or keys containing path elements.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Blob stores opaque values under string keys. Set overwrites the prior value
// entirely.
type Blob interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver     string
	Dir        string
	SQLitePath string
	Logger     *zap.Logger
}

// Open creates the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Blob, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	switch opts.Driver {
	case "", DriverFile:
		return NewFileStore(opts.Dir, log)
	case DriverSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.Dir, DefaultSQLiteFile)
		}
		return NewSQLiteStore(ctx, path)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", opts.Driver)
	}
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
