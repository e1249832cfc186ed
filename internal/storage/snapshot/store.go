// Package snapshot persists pattern trie snapshots to SQLite so a detector
// can restart without relearning every log shape from scratch.
package snapshot

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fidde/patterntrie/pkg/patterntrie"
	_ "modernc.org/sqlite"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS trie_snapshots (
	name       TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)
`

// Store is a SQLite-backed repository of named trie snapshots.
type Store struct {
	db *sql.DB
}

// New opens (creating if necessary) the SQLite database at dbPath and
// ensures the snapshot table exists.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=30000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot serializes t in compact form and upserts it under name.
func (s *Store) SaveSnapshot(ctx context.Context, name string, t *patterntrie.Trie) error {
	var buf bytes.Buffer
	if err := t.Save(&buf, true); err != nil {
		return fmt.Errorf("serializing trie %q: %w", name, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trie_snapshots (name, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`, name, buf.String(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving snapshot %q: %w", name, err)
	}
	return nil
}

// ErrNotFound is returned by LoadSnapshot when no snapshot exists under
// the requested name.
var ErrNotFound = fmt.Errorf("snapshot: not found")

// LoadSnapshot reads back the named snapshot and rebuilds a Trie from it.
func (s *Store) LoadSnapshot(ctx context.Context, name string) (*patterntrie.Trie, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM trie_snapshots WHERE name = ?`, name).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %q: %w", name, err)
	}

	t, err := patterntrie.Load(bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot %q: %w", name, err)
	}
	return t, nil
}

// ListNames returns every snapshot name currently stored, most recently
// updated first.
func (s *Store) ListNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM trie_snapshots ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning snapshot name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteSnapshot removes the named snapshot, if it exists.
func (s *Store) DeleteSnapshot(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM trie_snapshots WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting snapshot %q: %w", name, err)
	}
	return nil
}
