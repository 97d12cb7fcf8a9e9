// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

// Package store wraps BadgerDB as the durable key-value layer beneath the
// typed cache collections. It knows nothing about record shapes or TTLs;
// collection semantics live in internal/cache.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/akarlsen/ludograph/internal/config"
	"github.com/akarlsen/ludograph/internal/logging"
)

// ErrKeyNotFound is returned by Get when no value exists for the key.
var ErrKeyNotFound = errors.New("store: key not found")

// Store is a thin wrapper around a single BadgerDB instance.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the BadgerDB database at the configured path.
// An empty path selects Badger's in-memory mode, used by tests.
func Open(cfg config.StoreConfig) (*Store, error) {
	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}

	// Badger's own logger is noisy at INFO; our logging wrapper covers
	// everything we need.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.Path == "").
		Msg("Durable store opened")

	return &Store{db: db}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored at key, or ErrKeyNotFound.
func (s *Store) Get(key []byte) ([]byte, error) {
	var value []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return fmt.Errorf("get %q: %w", key, err)
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// GetMany returns the stored values for the given keys in a single view
// transaction. Missing keys are simply absent from the result; only
// infrastructure failures surface as errors.
func (s *Store) GetMany(keys [][]byte) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get %q: %w", key, err)
			}

			value, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("copy %q: %w", key, err)
			}
			result[string(key)] = value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Set stores value at key, replacing any existing value.
func (s *Store) Set(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete removes the value at key. Deleting a missing key is not an error.
func (s *Store) Delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// DeletePrefix removes every key sharing the given prefix. Used by the
// per-collection Clear operation.
func (s *Store) DeletePrefix(prefix []byte) error {
	// Collect first, delete second: Badger forbids writes while an
	// iterator is open on the same transaction in some configurations.
	var keys [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan prefix %q: %w", prefix, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete %q: %w", key, err)
			}
		}
		return nil
	})
}

// RunValueLogGC triggers one round of Badger value-log garbage collection.
// badger.ErrNoRewrite (nothing to collect) is normal and not reported.
func (s *Store) RunValueLogGC() {
	err := s.db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		logging.Warn().Err(err).Msg("Value log GC failed")
	}
}

// GCLoop runs value-log garbage collection at the given interval until the
// done channel closes. Run under the supervisor as a background service.
func (s *Store) GCLoop(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.RunValueLogGC()
		}
	}
}
