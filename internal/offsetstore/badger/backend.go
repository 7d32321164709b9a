// Package badger provides a BadgerDB-backed offset store.
package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/gezibash/netbridge/internal/offsetstore"
	"github.com/gezibash/netbridge/internal/storage"
)

const prefixOffset = "offset/"

const (
	KeyPath       = "path"
	KeySyncWrites = "sync_writes"
	KeyInMemory   = "in_memory"
)

func init() {
	offsetstore.Register("badger", NewFactory, Defaults)
}

// Defaults returns the default configuration for the BadgerDB backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyPath:       "~/.netbridge/offsets",
		KeySyncWrites: "true",
		KeyInMemory:   "false",
	}
}

// NewFactory creates a new BadgerDB store from a configuration map.
func NewFactory(_ context.Context, config map[string]string) (offsetstore.Store, error) {
	inMemory, err := storage.GetBool(config, KeyInMemory, false)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("badger", KeyInMemory, config[KeyInMemory], err.Error())
	}

	if inMemory {
		return newInMemory()
	}

	path := storage.GetString(config, KeyPath, "")
	if path == "" {
		return nil, storage.NewConfigError("badger", KeyPath, "cannot be empty")
	}
	path = storage.ExpandPath(path)

	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, storage.NewConfigErrorWithCause("badger", KeyPath, "failed to create directory", err)
	}

	syncWrites, err := storage.GetBool(config, KeySyncWrites, true)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("badger", KeySyncWrites, config[KeySyncWrites], err.Error())
	}

	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithSyncWrites(syncWrites)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("badger", KeyPath, "failed to open database", err)
	}

	slog.Info("badger offsetstore initialized", "path", path, "sync_writes", syncWrites)
	return NewWithDB(db), nil
}

func newInMemory() (*Backend, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("badger", KeyInMemory, "failed to open in-memory database", err)
	}

	slog.Debug("badger offsetstore initialized (in-memory)")
	return NewWithDB(db), nil
}

// Backend is a BadgerDB implementation of offsetstore.Store.
type Backend struct {
	db     *badger.DB
	closed atomic.Bool
}

// NewWithDB creates a store over an existing BadgerDB instance. The store
// takes ownership of db.
func NewWithDB(db *badger.DB) *Backend {
	return &Backend{db: db}
}

// Load returns the offset saved for key.
func (b *Backend) Load(_ context.Context, key string) (int64, error) {
	if b.closed.Load() {
		return 0, offsetstore.ErrClosed
	}

	var off int64
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixOffset + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt offset value (%d bytes)", len(val))
			}
			off = int64(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, offsetstore.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("badger load %q: %w", key, err)
	}
	return off, nil
}

// Save stores offset under key, replacing any previous value.
func (b *Backend) Save(_ context.Context, key string, offset int64) error {
	if b.closed.Load() {
		return offsetstore.ErrClosed
	}

	var val [8]byte
	binary.BigEndian.PutUint64(val[:], uint64(offset))
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixOffset+key), val[:])
	})
	if err != nil {
		return fmt.Errorf("badger save %q: %w", key, err)
	}
	return nil
}

// Close releases the database. Subsequent calls are no-ops.
func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	return b.db.Close()
}
