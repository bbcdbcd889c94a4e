// Package blobstore implements a flat key→bytes store addressed by
// opaque string keys, backed by github.com/dgraph-io/badger/v4. Every
// on-disk artifact a graph produces (manifest, part header, property
// file, topology record, entity-type-id array) is ultimately a
// blobstore key under a graph directory prefix.
package blobstore

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
)

// Store is a single-writer, multi-reader flat key→bytes namespace.
// Badger's own single-writer transaction semantics give every write
// atomic visibility without any extra locking in this package.
type Store struct {
	db  *badger.DB
	log *slog.Logger
}

// Open opens (creating if necessary) a Store rooted at dir.
func Open(dir string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("blobstore: open %s: %w", dir, err)
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying Badger handles.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("blobstore: close: %w", err)
	}
	return nil
}

// Get reads the bytes stored at key. It returns (nil, false, nil) if
// the key is absent.
func (s *Store) Get(key string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("blobstore: get %s: %w", key, err)
	}
	return out, out != nil, nil
}

// Put writes content at key, overwriting any existing value. A single
// Badger transaction makes the write atomic from a reader's point of
// view: no reader ever observes a partial value.
func (s *Store) Put(key string, content []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), content)
	})
	if err != nil {
		return fmt.Errorf("blobstore: put %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is present.
func (s *Store) Exists(key string) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("blobstore: exists %s: %w", key, err)
	}
	return found, nil
}

// Delete removes key. Deleting an absent key is not an error —
// persistence.Store.Commit calls this once per path in a
// CommitRequest's RemovedPaths after a commit succeeds, unlinking
// columns property.Manager.Remove marked for deferred removal.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("blobstore: delete %s: %w", key, err)
	}
	return nil
}

// ListPrefix returns every key with the given prefix, in Badger's
// natural (lexicographic) order.
func (s *Store) ListPrefix(prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(bytes.Clone(it.Item().Key())))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: list prefix %s: %w", prefix, err)
	}
	return keys, nil
}

// writeGroupCounter counts the WriteGroups opened in this process.
var writeGroupCounter atomic.Uint64
