package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mesh-intelligence/inkwell/pkg/types"
)

const fileExt = ".json"

// FileStore keeps one JSON file per key in a directory. Writes are atomic.
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory holding the history files.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

// Get reads the file for key.
func (s *FileStore) Get(key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.ErrHistoryNotFound
		}
		return nil, fmt.Errorf("reading history %s: %w", key, err)
	}
	return data, nil
}

// Put writes the file for key atomically.
func (s *FileStore) Put(key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := WriteFileAtomic(s.path(key), data); err != nil {
		return fmt.Errorf("writing history %s: %w", key, err)
	}
	return nil
}

// Exists reports whether the file for key exists.
func (s *FileStore) Exists(key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat history %s: %w", key, err)
}

// Keys lists the keys of all history files. Files whose names are not valid
// keys are listed too, so maintenance runs can report them; Get and Put
// reject them.
func (s *FileStore) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing history dir: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
