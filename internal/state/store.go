// Package state persists per-file fingerprints between runs so the
// preprocessor can skip unchanged documents.
package state

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed fingerprint store.
// Use ":memory:" for an in-memory database (tests), or a file path for
// persistent storage.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (and if needed creates) the fingerprint database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize state schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fingerprints (
		path TEXT PRIMARY KEY,
		digest TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored digest for path, if any.
func (s *Store) Get(ctx context.Context, path string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var digest string
	err := s.db.QueryRowContext(ctx,
		"SELECT digest FROM fingerprints WHERE path = ?", path).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query fingerprint: %w", err)
	}
	return digest, true, nil
}

// Put stores or replaces the digest for path.
func (s *Store) Put(ctx context.Context, path, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fingerprints (path, digest, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET digest = excluded.digest, updated_at = excluded.updated_at`,
		path, digest, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store fingerprint: %w", err)
	}
	return nil
}

// Prune removes fingerprints for paths no longer present in the docs
// tree and returns the number of removed rows.
func (s *Store) Prune(ctx context.Context, live map[string]struct{}) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT path FROM fingerprints")
	if err != nil {
		return 0, fmt.Errorf("list fingerprints: %w", err)
	}
	var stale []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan fingerprint: %w", err)
		}
		if _, ok := live[p]; !ok {
			stale = append(stale, p)
		}
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}

	for _, p := range stale {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM fingerprints WHERE path = ?", p); err != nil {
			return 0, fmt.Errorf("delete fingerprint: %w", err)
		}
	}
	return len(stale), nil
}

// Reset drops all fingerprints, forcing a full rebuild on the next run.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM fingerprints")
	return err
}

// Digest computes the fingerprint of a document and everything it depends
// on: its own content plus the contents of each dependency, bound to
// their paths so renames invalidate the entry.
func Digest(content []byte, deps map[string][]byte) string {
	h := sha256.New()
	h.Write(content)

	paths := make([]string, 0, len(deps))
	for p := range deps {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		h.Write([]byte{0})
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write(deps[p])
	}
	return hex.EncodeToString(h.Sum(nil))
}
