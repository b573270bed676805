// Package store provides the durable SQLite layer: session snapshots
// for crash recovery, the archived session history, and user
// preferences. Persistence is best-effort; callers log failures and
// keep the in-memory state authoritative.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// PersistenceError wraps a durable read or write failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "persistence: " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store is the SQLite-backed durable layer.
type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database at dsn, applies pragmas, and
// runs the schema migration.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &PersistenceError{Op: "open database", Err: err}
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "apply pragmas", Err: err}
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "migrate", Err: err}
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// applyPragmas configures SQLite for single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		session_id TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		data TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		content_type TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_started_at ON history(started_at);

	CREATE TABLE IF NOT EXISTS prefs (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveSnapshot upserts a serialized session snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, sessionID string, version int, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (session_id, version, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET version = excluded.version,
		     data = excluded.data, updated_at = excluded.updated_at`,
		sessionID, version, string(data), time.Now().UTC())
	if err != nil {
		return &PersistenceError{Op: "save snapshot " + sessionID, Err: err}
	}
	return nil
}

// LoadSnapshot reads a session snapshot. The second return is false
// when no snapshot exists for the id.
func (s *Store) LoadSnapshot(ctx context.Context, sessionID string) ([]byte, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE session_id = ?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &PersistenceError{Op: "load snapshot " + sessionID, Err: err}
	}
	return []byte(data), true, nil
}

// DeleteSnapshot removes a session snapshot. Missing ids are not an
// error.
func (s *Store) DeleteSnapshot(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE session_id = ?`, sessionID); err != nil {
		return &PersistenceError{Op: "delete snapshot " + sessionID, Err: err}
	}
	return nil
}

// AppendHistory writes one archived session record. History is
// append-only; a duplicate id is rejected by the primary key.
func (s *Store) AppendHistory(ctx context.Context, id, contentType string, startedAt time.Time, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (id, content_type, started_at, data) VALUES (?, ?, ?, ?)`,
		id, contentType, startedAt.UTC(), string(data))
	if err != nil {
		return &PersistenceError{Op: "append history " + id, Err: err}
	}
	return nil
}

// ListHistory returns all archived session records, most recent first.
func (s *Store) ListHistory(ctx context.Context) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM history ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, &PersistenceError{Op: "list history", Err: err}
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, &PersistenceError{Op: "scan history row", Err: err}
		}
		out = append(out, []byte(data))
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list history", Err: err}
	}
	return out, nil
}

// DeleteHistory removes one archived session record.
func (s *Store) DeleteHistory(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM history WHERE id = ?`, id); err != nil {
		return &PersistenceError{Op: "delete history " + id, Err: err}
	}
	return nil
}

// SavePref upserts one preference key.
func (s *Store) SavePref(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prefs (k, v) VALUES (?, ?)
		 ON CONFLICT(k) DO UPDATE SET v = excluded.v`, key, value)
	if err != nil {
		return &PersistenceError{Op: "save pref " + key, Err: err}
	}
	return nil
}

// LoadPref reads one preference key. The second return is false when
// the key has never been saved.
func (s *Store) LoadPref(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM prefs WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &PersistenceError{Op: "load pref " + key, Err: err}
	}
	return v, true, nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. STUDYLOOP_DB environment variable
// 2. $XDG_DATA_HOME/studyloop/studyloop.db
// 3. ~/.local/share/studyloop/studyloop.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("STUDYLOOP_DB"); p != "" {
		return p, ensureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "studyloop", "studyloop.db")
	return p, ensureDir(p)
}

// ensureDir creates the parent directory of path if it doesn't exist.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
