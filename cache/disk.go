package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// maxArtifactSize caps how much of a blob Get reads.
const maxArtifactSize = 1 << 34

// DiskStore keeps built models as content-addressed blobs plus one link
// file per key naming the blob:
//
//	<dir>/
//	  blobs/
//	    sha256-<digest>      serialized model
//	  keys/
//	    sha256-<key digest>  "sha256-<digest>"
//
// Blobs and links are written to a temporary file and renamed into
// place, so readers see either the old entry or the complete new one.
type DiskStore struct {
	dir string
}

// OpenDisk opens a store rooted at dir, creating it if needed.
func OpenDisk(dir string) (*DiskStore, error) {
	if dir == "" {
		return nil, errors.New("cache: no directory given")
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("cache: %s exists and is not a directory", dir)
	}
	for _, sub := range []string{"blobs", "keys"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
	}
	return &DiskStore{dir: dir}, nil
}

func (c *DiskStore) blobFile(d Digest) string {
	return filepath.Join(c.dir, "blobs", d.String())
}

func (c *DiskStore) keyFile(k Key) string {
	return filepath.Join(c.dir, "keys", k.Digest().String())
}

// Put stores data under k. An existing entry for k is replaced.
func (c *DiskStore) Put(_ context.Context, k Key, data []byte) error {
	d := Sum(data)
	if _, got, err := readBlob(c.blobFile(d)); err != nil || got != d {
		if err := replaceFile(c.blobFile(d), bytes.NewReader(data)); err != nil {
			return fmt.Errorf("cache: writing model blob for %s: %w", k, err)
		}
	}

	// the link goes last, so a key never names a blob that is not there
	if err := replaceFile(c.keyFile(k), strings.NewReader(d.String())); err != nil {
		return fmt.Errorf("cache: linking %s: %w", k, err)
	}
	slog.Debug("cache: stored model", "key", k, "digest", d, "size", len(data))
	return nil
}

// Get returns the model stored under k after checking the blob against
// its digest.
func (c *DiskStore) Get(_ context.Context, k Key) ([]byte, error) {
	link, err := os.ReadFile(c.keyFile(k))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, k)
	}
	if err != nil {
		return nil, err
	}
	d, err := ParseDigest(strings.TrimSpace(string(link)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, k, err)
	}

	data, got, err := readBlob(c.blobFile(d))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: model blob %s is gone", ErrNotFound, k, d)
	}
	if err != nil {
		return nil, err
	}
	if got != d {
		return nil, fmt.Errorf("%w: %s: model blob %s hashes to %s", ErrCorrupt, k, d, got)
	}
	return data, nil
}

func (c *DiskStore) Close() error { return nil }

// readBlob reads a blob and the digest of what was read.
func readBlob(name string) ([]byte, Digest, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, Digest{}, err
	}
	defer f.Close()

	h := sha256.New()
	data, err := io.ReadAll(io.TeeReader(io.LimitReader(f, maxArtifactSize), h))
	if err != nil {
		return nil, Digest{}, err
	}
	var d Digest
	h.Sum(d.sum[:0])
	return data, d, nil
}

// replaceFile writes r to a temporary file next to name and renames it
// over name.
func replaceFile(name string, r io.Reader) error {
	f, err := os.CreateTemp(filepath.Dir(name), ".tmp-")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), name)
}
