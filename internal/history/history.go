// Package history persists per-thread conversation turns so follow-up
// questions ("nó sôi ở bao nhiêu độ?") can be resolved against context.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Turn is a single message in a conversation thread.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	thread_id  TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS turns_thread_idx ON turns (thread_id, id);
`

// Store is a SQLite-backed conversation store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create turns table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Append records one turn at the end of a thread.
func (s *Store) Append(threadID, role, content string) error {
	_, err := s.db.Exec(`INSERT INTO turns (thread_id, role, content) VALUES (?, ?, ?)`,
		threadID, role, content)
	return err
}

// Recent returns the last n turns of a thread in chronological order.
func (s *Store) Recent(threadID string, n int) ([]Turn, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.Query(`SELECT role, content FROM (
			SELECT id, role, content FROM turns WHERE thread_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, threadID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Role, &t.Content); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
