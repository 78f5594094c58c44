// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badgerstore wraps BadgerDB with a small transactional API for
// service-local persistence. Control state and schedules are tiny,
// hot, and service-infrastructure-shaped, which is exactly the workload
// an embedded KV store fits: no network call, no availability dependency.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned by Get-style helpers when the key is absent or
// its TTL has expired.
var ErrNotFound = errors.New("badgerstore: key not found")

// gcInterval is how often the value-log garbage collector runs.
const gcInterval = 10 * time.Minute

// Config controls how the store is opened.
type Config struct {
	// Path is the on-disk directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in RAM. Used by tests and by deployments
	// that can tolerate losing state on restart.
	InMemory bool

	// SyncWrites forces an fsync per write. Off by default; control state
	// is reconstructible from the device's next heartbeat.
	SyncWrites bool
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{}
}

// DB is an opened BadgerDB handle.
//
// Thread Safety: Safe for concurrent use. Transactions are per-goroutine.
type DB struct {
	db   *badger.DB
	stop chan struct{}
}

// OpenDB opens the store at cfg.Path, creating the directory if needed.
//
// Outputs:
//
//	*DB - The opened handle. The caller owns the lifecycle and must call
//	Close on shutdown.
//	error - Non-nil if the directory cannot be opened or is locked by
//	another process.
func OpenDB(cfg Config) (*DB, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: opening %q: %w", cfg.Path, err)
	}

	d := &DB{db: db, stop: make(chan struct{})}
	if !cfg.InMemory {
		go d.runGC()
	}
	return d, nil
}

// Close stops the garbage collector and closes the underlying store.
func (d *DB) Close() error {
	close(d.stop)
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("badgerstore: closing: %w", err)
	}
	return nil
}

// WithTxn runs fn inside a read-write transaction.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(fn)
}

// WithReadTxn runs fn inside a read-only transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(fn)
}

// SetJSON marshals v and stores it under key. A ttl of 0 means no expiry.
func (d *DB) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("badgerstore: encoding %q: %w", key, err)
	}
	return d.WithTxn(ctx, func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), raw)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// GetJSON loads key and unmarshals it into v. Returns ErrNotFound when the
// key is absent or expired.
func (d *DB) GetJSON(ctx context.Context, key string, v any) error {
	var raw []byte
	err := d.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("badgerstore: get %q: %w", key, err)
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("badgerstore: decoding %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (d *DB) Delete(ctx context.Context, key string) error {
	return d.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// ListJSON decodes every value under prefix into instances produced by
// newV and passes them to visit, which receives the full key as well.
func (d *DB) ListJSON(ctx context.Context, prefix string, visit func(key string, raw []byte) error) error {
	return d.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("badgerstore: reading %q: %w", item.Key(), err)
			}
			if err := visit(string(item.Key()), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

// runGC drives Badger's value-log garbage collection. ErrNoRewrite is the
// normal "nothing to collect" result.
func (d *DB) runGC() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			for {
				err := d.db.RunValueLogGC(0.5)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						slog.Warn("badger value log GC failed", slog.Any("error", err))
					}
					break
				}
			}
		}
	}
}
