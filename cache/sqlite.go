// Modul: sqlite.go - SQLite-Store
// Enthaelt: SQLiteStore, OpenSQLite, Get, Put, Close
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite-Treiber registrieren
)

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	key_digest TEXT PRIMARY KEY,
	key TEXT NOT NULL,
	digest TEXT NOT NULL,
	data BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteStore keeps artifacts in one SQLite table. SQLite serializes
// writers itself, so the store needs no locking of its own.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, k Key) ([]byte, error) {
	var (
		digest string
		data   []byte
	)
	err := s.db.QueryRowContext(ctx, `SELECT digest, data FROM artifacts WHERE key_digest = ?`, k.Digest().String()).Scan(&digest, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, k)
	}
	if err != nil {
		return nil, err
	}
	if got := Sum(data).String(); got != digest {
		return nil, fmt.Errorf("%w: %s: stored %s, read %s", ErrCorrupt, k, digest, got)
	}
	return data, nil
}

func (s *SQLiteStore) Put(ctx context.Context, k Key, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (key_digest, key, digest, data) VALUES (?, ?, ?, ?)
		ON CONFLICT(key_digest) DO UPDATE SET key = excluded.key, digest = excluded.digest, data = excluded.data, created_at = CURRENT_TIMESTAMP`,
		k.Digest().String(), k.String(), Sum(data).String(), data)
	return err
}

func (s *SQLiteStore) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);")
	return s.db.Close()
}
