package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/inkwell/pkg/types"
)

const createHistories = `CREATE TABLE IF NOT EXISTS histories (
    key TEXT PRIMARY KEY,
    body BLOB NOT NULL,
    updated_at TEXT NOT NULL
);`

// SQLiteStore keeps records in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(createHistories); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get returns the body stored under key.
func (s *SQLiteStore) Get(key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var body []byte
	err := s.db.QueryRow("SELECT body FROM histories WHERE key = ?", key).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrHistoryNotFound
		}
		return nil, fmt.Errorf("getting history %s: %w", key, err)
	}
	return body, nil
}

// Put upserts the body under key.
func (s *SQLiteStore) Put(key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO histories (key, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		key, data, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("persisting history %s: %w", key, err)
	}
	return nil
}

// Exists reports whether a row exists for key.
func (s *SQLiteStore) Exists(key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	var one int
	err := s.db.QueryRow("SELECT 1 FROM histories WHERE key = ?", key).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking history %s: %w", key, err)
	}
	return true, nil
}

// Keys lists all keys in ascending order.
func (s *SQLiteStore) Keys() ([]string, error) {
	rows, err := s.db.Query("SELECT key FROM histories ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("listing histories: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
