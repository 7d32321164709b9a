// Package sqlite provides a SQLite-backed offset store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gezibash/netbridge/internal/offsetstore"
	"github.com/gezibash/netbridge/internal/storage"
)

const (
	KeyPath        = "path"
	KeyJournalMode = "journal_mode"
	KeyBusyTimeout = "busy_timeout"
)

func init() {
	offsetstore.Register("sqlite", NewFactory, Defaults)
}

// Defaults returns the default configuration for the SQLite backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyPath:        "~/.netbridge/offsets.db",
		KeyJournalMode: "wal",
		KeyBusyTimeout: "5000",
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS offsets (
    key         TEXT PRIMARY KEY,
    next_offset INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);
`

// NewFactory creates a new SQLite store from a configuration map.
func NewFactory(_ context.Context, config map[string]string) (offsetstore.Store, error) {
	path := storage.GetString(config, KeyPath, "")
	if path == "" {
		return nil, storage.NewConfigError("sqlite", KeyPath, "cannot be empty")
	}
	path = storage.ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to create directory", err)
	}

	journalMode := storage.GetString(config, KeyJournalMode, "wal")
	busyTimeout, err := storage.GetInt(config, KeyBusyTimeout, 5000)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("sqlite", KeyBusyTimeout, config[KeyBusyTimeout], err.Error())
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(%s)&_pragma=busy_timeout(%d)",
		path, journalMode, busyTimeout)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to open database", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to initialize schema", err)
	}

	slog.Info("sqlite offsetstore initialized", "path", path, "journal_mode", journalMode)
	return &Backend{db: db}, nil
}

// Backend is a SQLite implementation of offsetstore.Store.
type Backend struct {
	db     *sql.DB
	closed atomic.Bool
}

// Load returns the offset saved for key.
func (b *Backend) Load(ctx context.Context, key string) (int64, error) {
	if b.closed.Load() {
		return 0, offsetstore.ErrClosed
	}

	var off int64
	err := b.db.QueryRowContext(ctx, `SELECT next_offset FROM offsets WHERE key = ?`, key).Scan(&off)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, offsetstore.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite load %q: %w", key, err)
	}
	return off, nil
}

// Save stores offset under key, replacing any previous value.
func (b *Backend) Save(ctx context.Context, key string, offset int64) error {
	if b.closed.Load() {
		return offsetstore.ErrClosed
	}

	_, err := b.db.ExecContext(ctx, `
		INSERT INTO offsets (key, next_offset, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET next_offset = excluded.next_offset, updated_at = excluded.updated_at`,
		key, offset, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite save %q: %w", key, err)
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
