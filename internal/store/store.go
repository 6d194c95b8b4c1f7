// Package store persists document history records. A Store is a byte-level
// get/put/exists map keyed by document slug or identifier, with no
// transactions; the on-disk record format is handled by Encode and Decode.
//
// Backends: one JSON file per key (file), a SQLite table (sqlite), and a
// badger key-value store (badger).
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// Store is a durable record store keyed by document key.
type Store interface {
	// Get returns the record under key, or types.ErrHistoryNotFound.
	Get(key string) ([]byte, error)

	// Put replaces the record under key. Last writer wins.
	Put(key string, data []byte) error

	// Exists reports whether a record is stored under key.
	Exists(key string) (bool, error)

	// Keys returns all stored keys in ascending order.
	Keys() ([]string, error)

	// Close releases backend resources.
	Close() error
}

// Data directory layout.
const (
	historyDirName = "history"
	sqliteFileName = "history.db"
	badgerDirName  = "history.badger"
)

// Open creates the store selected by cfg.Backend under cfg.DataDir, creating
// directories as needed.
func Open(cfg types.Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	switch cfg.Backend {
	case types.BackendFile:
		return NewFileStore(filepath.Join(dataDir, historyDirName))
	case types.BackendSQLite:
		return NewSQLiteStore(filepath.Join(dataDir, sqliteFileName))
	case types.BackendBadger:
		return NewBadgerStore(filepath.Join(dataDir, badgerDirName), false)
	default:
		return nil, types.ErrBackendUnknown
	}
}

// ValidKey reports whether key is usable as a storage key. Keys must be
// non-empty, must not start with a dot, and must not contain path
// separators, "..", or NUL bytes.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, ".") {
		return false
	}
	if strings.ContainsAny(key, "/\\\x00") || strings.Contains(key, "..") {
		return false
	}
	return true
}

func checkKey(key string) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: %q", types.ErrInvalidKey, key)
	}
	return nil
}
