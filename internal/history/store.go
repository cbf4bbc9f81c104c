// Package history persists launch outcomes in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"termlaunch/internal/launch"
)

// FileName is the database file name inside the config directory.
const FileName = "history.db"

// Launch sources.
const (
	SourceUI  = "ui"
	SourceCLI = "cli"
	SourceIPC = "ipc"
)

const schema = `
CREATE TABLE IF NOT EXISTS launches (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	terminal   TEXT NOT NULL,
	choice     TEXT NOT NULL DEFAULT '',
	command    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS launches_created_at ON launches (created_at DESC);
`

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("history store is closed")

// Entry is one recorded launch.
type Entry struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Terminal string    `json:"terminal"`
	Choice   string    `json:"choice"`
	Command  string    `json:"command"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Source   string    `json:"source"`
}

// FromOutcome converts a requester outcome into an Entry stamped with now.
func FromOutcome(out launch.Outcome, source string, now time.Time) Entry {
	return Entry{
		ID:       out.ID,
		Time:     now,
		Terminal: out.Terminal,
		Choice:   out.Choice,
		Command:  out.Command,
		Status:   out.Status,
		Error:    out.Error,
		Source:   source,
	}
}

// Store is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// DefaultPath returns the database path next to the config file.
func DefaultPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), FileName)
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("open history: mkdir: %w", err)
	}

	dsn := "file:" + filepath.ToSlash(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// A single connection serializes writers; SQLite allows only one at a time anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("open history: create schema: %w", err)
	}
	slog.Debug("[DEBUG-HISTORY] opened launch history", "path", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Record inserts e. An entry with an existing id replaces the old row.
func (s *Store) Record(ctx context.Context, e Entry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if e.ID == "" {
		return errors.New("record launch: empty id")
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO launches (id, created_at, terminal, choice, command, status, error, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Time.UnixMilli(), e.Terminal, e.Choice, e.Command, e.Status, e.Error, e.Source,
	)
	if err != nil {
		return fmt.Errorf("record launch: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if limit <= 0 {
		return []Entry{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, terminal, choice, command, status, error, source
		 FROM launches ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e        Entry
			unixMill int64
		)
		if err := rows.Scan(&e.ID, &unixMill, &e.Terminal, &e.Choice, &e.Command, &e.Status, &e.Error, &e.Source); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Time = time.UnixMilli(unixMill)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Prune keeps the newest keep entries and deletes the rest.
// It returns the number of deleted rows.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM launches WHERE id NOT IN (
			SELECT id FROM launches ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	if n > 0 {
		slog.Debug("[DEBUG-HISTORY] pruned launch history", "deleted", n, "keep", keep)
	}
	return n, nil
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
