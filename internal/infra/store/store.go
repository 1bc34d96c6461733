// Package store persists the resume bookmark in a SQLite database so an
// interrupted playlist survives a restart.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/osa030/tagbox/internal/domain/resume"
)

// bookmarkID is the key of the single bookmark row.
const bookmarkID = 1

// Store is a playback.BookmarkStore backed by SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the database at path. ":memory:" opens a
// throwaway in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create state directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to configure database")
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bookmark (
			id         INTEGER PRIMARY KEY,
			token      TEXT NOT NULL,
			idx        INTEGER NOT NULL,
			offset_ms  INTEGER NOT NULL,
			shuffled   INTEGER NOT NULL DEFAULT 0,
			seed       INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create bookmark table")
	}

	return &Store{db: db}, nil
}

// Load returns the stored bookmark, or nil when none is stored.
func (s *Store) Load(ctx context.Context) (*resume.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		b        resume.Bookmark
		offsetMs int64
		shuffled int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token, idx, offset_ms, shuffled, seed FROM bookmark WHERE id = ?`, bookmarkID,
	).Scan(&b.Token, &b.Index, &offsetMs, &shuffled, &b.Seed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load bookmark")
	}
	b.Offset = time.Duration(offsetMs) * time.Millisecond
	b.Shuffled = shuffled != 0
	return &b, nil
}

// Save replaces the stored bookmark.
func (s *Store) Save(ctx context.Context, b resume.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	shuffled := 0
	if b.Shuffled {
		shuffled = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookmark (id, token, idx, offset_ms, shuffled, seed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			idx = excluded.idx,
			offset_ms = excluded.offset_ms,
			shuffled = excluded.shuffled,
			seed = excluded.seed,
			updated_at = CURRENT_TIMESTAMP
	`, bookmarkID, b.Token, b.Index, b.Offset.Milliseconds(), shuffled, b.Seed)
	return errors.Wrap(err, "failed to save bookmark")
}

// Clear removes the stored bookmark.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM bookmark WHERE id = ?`, bookmarkID)
	return errors.Wrap(err, "failed to clear bookmark")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
