package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

var (
	// ErrNotFound is returned by Get for a key that was never stored.
	ErrNotFound = errors.New("cache: not found")

	// ErrCorrupt is returned by Get when the stored artifact does not
	// match the digest recorded at Put.
	ErrCorrupt = errors.New("cache: artifact corrupt")
)

// Store maps keys to opaque artifacts.
type Store interface {
	Get(ctx context.Context, k Key) ([]byte, error)
	Put(ctx context.Context, k Key, data []byte) error
	Close() error
}

// Backends.
const (
	BackendDisk   = "disk"
	BackendSQLite = "sqlite"
)

// Open opens the store of the named backend rooted at dir. The empty
// backend selects the disk store.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case "", BackendDisk:
		return OpenDisk(dir)
	case BackendSQLite:
		return OpenSQLite(filepath.Join(dir, "cache.sqlite"))
	}
	return nil, fmt.Errorf("cache: unknown backend %q", backend)
}
