package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/mesh-intelligence/inkwell/pkg/types"
)

var badgerPrefix = []byte("history/")

// BadgerStore keeps records in a badger database under a key prefix.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens the badger database in dir. With inMemory set, dir is
// ignored and nothing is written to disk.
func NewBadgerStore(dir string, inMemory bool) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger %s: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

func badgerKey(key string) []byte {
	return append(append([]byte{}, badgerPrefix...), key...)
}

// Get returns the value under key.
func (s *BadgerStore) Get(key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, types.ErrHistoryNotFound
		}
		return nil, fmt.Errorf("getting history %s: %w", key, err)
	}
	return out, nil
}

// Put sets the value under key.
func (s *BadgerStore) Put(key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(key), data)
	})
	if err != nil {
		return fmt.Errorf("persisting history %s: %w", key, err)
	}
	return nil
}

// Exists reports whether a value is stored under key.
func (s *BadgerStore) Exists(key string) (bool, error) {
	_, err := s.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, types.ErrHistoryNotFound) {
		return false, nil
	}
	return false, err
}

// Keys lists all keys. Badger iterates in byte order, which is ascending.
func (s *BadgerStore) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = badgerPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(badgerPrefix); it.ValidForPrefix(badgerPrefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			keys = append(keys, string(k[len(badgerPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing histories: %w", err)
	}
	return keys, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
