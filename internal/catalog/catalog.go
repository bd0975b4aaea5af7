// Package catalog stores the chemistry compound catalog in SQLite and loads
// it from the JSON data file shipped with the repository.
package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"chemi/internal/domain"
)

// ErrNotFound is returned when a doc_id has no catalog record.
var ErrNotFound = errors.New("catalog: record not found")

const schema = `
CREATE TABLE IF NOT EXISTS compounds (
	doc_id     TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	iupac_name TEXT NOT NULL,
	formula    TEXT NOT NULL,
	image_path TEXT NOT NULL DEFAULT '',
	audio_path TEXT NOT NULL DEFAULT ''
);
`

// Store is the SQLite-backed compound catalog.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (or creates) the catalog database at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create compounds table: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Count returns the number of catalog records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM compounds`).Scan(&n)
	return n, err
}

// Sync loads records from the JSON catalog file when the table is empty.
// Relative asset paths are rewritten under the configured prefixes; http(s)
// URLs are kept as-is.
func (s *Store) Sync(jsonPath, imagesPrefix, audioPrefix string) (int, error) {
	n, err := s.Count()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	records, err := LoadJSON(jsonPath)
	if err != nil {
		return 0, err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO compounds
		(doc_id, type, iupac_name, formula, image_path, audio_path)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, r := range records {
		r.ImagePath = rewritePath(r.ImagePath, imagesPrefix)
		r.AudioPath = rewritePath(r.AudioPath, audioPrefix)
		if _, err := stmt.Exec(r.DocID, r.Type, r.IUPACName, r.Formula, r.ImagePath, r.AudioPath); err != nil {
			return 0, fmt.Errorf("insert %s: %w", r.DocID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.log.Info("catalog loaded", zap.String("file", jsonPath), zap.Int("records", len(records)))
	return len(records), nil
}

// Get returns the record with the given doc_id.
func (s *Store) Get(docID string) (domain.Compound, error) {
	var c domain.Compound
	err := s.db.QueryRow(`SELECT doc_id, type, iupac_name, formula, image_path, audio_path
		FROM compounds WHERE doc_id = ?`, docID).
		Scan(&c.DocID, &c.Type, &c.IUPACName, &c.Formula, &c.ImagePath, &c.AudioPath)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Compound{}, ErrNotFound
	}
	if err != nil {
		return domain.Compound{}, err
	}
	return c, nil
}

// All returns every catalog record ordered by doc_id.
func (s *Store) All() ([]domain.Compound, error) {
	rows, err := s.db.Query(`SELECT doc_id, type, iupac_name, formula, image_path, audio_path
		FROM compounds ORDER BY doc_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Compound
	for rows.Next() {
		var c domain.Compound
		if err := rows.Scan(&c.DocID, &c.Type, &c.IUPACName, &c.Formula, &c.ImagePath, &c.AudioPath); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LoadJSON reads the raw catalog file without path rewriting.
func LoadJSON(path string) ([]domain.Compound, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var records []domain.Compound
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	return records, nil
}

// SaveJSON writes records back to the catalog file.
func SaveJSON(path string, records []domain.Compound) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write catalog file: %w", err)
	}
	return nil
}

// rewritePath moves a relative asset path under prefix, keeping only the file
// name ("images/h2o.png" -> "<prefix>/h2o.png"). Element audio lives one level
// deeper, so an elements/ parent segment is preserved to match where
// pre-generation writes. URLs pass through.
func rewritePath(p, prefix string) string {
	if p == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if filepath.Base(filepath.Dir(p)) == "elements" {
		return filepath.ToSlash(filepath.Join(prefix, "elements", filepath.Base(p)))
	}
	return filepath.ToSlash(filepath.Join(prefix, filepath.Base(p)))
}
