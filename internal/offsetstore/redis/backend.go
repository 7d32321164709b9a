// Package redis provides a Redis-backed offset store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gezibash/netbridge/internal/offsetstore"
	"github.com/gezibash/netbridge/internal/storage"
)

const (
	KeyAddr        = "addr"
	KeyPassword    = "password"
	KeyDB          = "db"
	KeyMaxRetries  = "max_retries"
	KeyDialTimeout = "dial_timeout"
	KeyKeyPrefix   = "key_prefix"

	defaultPrefix = "netbridge:"
)

func init() {
	offsetstore.Register("redis", NewFactory, Defaults)
}

// Defaults returns the default configuration for the Redis backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyAddr:        "localhost:6379",
		KeyPassword:    "",
		KeyDB:          "0",
		KeyMaxRetries:  "3",
		KeyDialTimeout: "5s",
		KeyKeyPrefix:   defaultPrefix,
	}
}

// Options holds the parsed backend configuration.
type Options struct {
	Client *redis.Options
	Prefix string
}

// ParseConfig validates a configuration map without connecting.
func ParseConfig(config map[string]string) (*Options, error) {
	addr := storage.GetString(config, KeyAddr, "")
	if addr == "" {
		return nil, storage.NewConfigError("redis", KeyAddr, "cannot be empty")
	}

	db, err := storage.GetInt(config, KeyDB, 0)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("redis", KeyDB, config[KeyDB], err.Error())
	}
	if db < 0 {
		return nil, storage.NewConfigErrorWithValue("redis", KeyDB, config[KeyDB], "must be non-negative")
	}

	maxRetries, err := storage.GetInt(config, KeyMaxRetries, 3)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("redis", KeyMaxRetries, config[KeyMaxRetries], err.Error())
	}

	dialTimeout, err := storage.GetDuration(config, KeyDialTimeout, 5*time.Second)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("redis", KeyDialTimeout, config[KeyDialTimeout], err.Error())
	}

	return &Options{
		Client: &redis.Options{
			Addr:        addr,
			Password:    storage.GetString(config, KeyPassword, ""),
			DB:          db,
			MaxRetries:  maxRetries,
			DialTimeout: dialTimeout,
		},
		Prefix: storage.GetString(config, KeyKeyPrefix, defaultPrefix),
	}, nil
}

// NewFactory creates a new Redis store and checks the server is reachable.
func NewFactory(ctx context.Context, config map[string]string) (offsetstore.Store, error) {
	opts, err := ParseConfig(config)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts.Client)

	pingCtx, cancel := context.WithTimeout(ctx, opts.Client.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, storage.NewConfigErrorWithCause("redis", KeyAddr, "failed to connect", err)
	}

	slog.Info("redis offsetstore initialized", "addr", opts.Client.Addr, "db", opts.Client.DB, "key_prefix", opts.Prefix)
	return NewWithClient(client, opts.Prefix), nil
}

// Backend is a Redis implementation of offsetstore.Store.
type Backend struct {
	client *redis.Client
	prefix string
	closed atomic.Bool
}

// NewWithClient creates a store with an existing Redis client. The store
// takes ownership of client.
func NewWithClient(client *redis.Client, prefix string) *Backend {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Backend{client: client, prefix: prefix}
}

func (b *Backend) offsetKey(key string) string {
	return b.prefix + "offset:" + key
}

// Load returns the offset saved for key.
func (b *Backend) Load(ctx context.Context, key string) (int64, error) {
	if b.closed.Load() {
		return 0, offsetstore.ErrClosed
	}

	v, err := b.client.Get(ctx, b.offsetKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, offsetstore.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("redis load %q: %w", key, err)
	}
	off, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis load %q: corrupt value %q: %w", key, v, err)
	}
	return off, nil
}

// Save stores offset under key, replacing any previous value.
func (b *Backend) Save(ctx context.Context, key string, offset int64) error {
	if b.closed.Load() {
		return offsetstore.ErrClosed
	}
	if err := b.client.Set(ctx, b.offsetKey(key), offset, 0).Err(); err != nil {
		return fmt.Errorf("redis save %q: %w", key, err)
	}
	return nil
}

// Close closes the client. Subsequent calls are no-ops.
func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	return b.client.Close()
}
