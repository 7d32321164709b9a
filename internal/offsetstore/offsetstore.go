// Package offsetstore persists long-poll offsets so a restarted client
// resumes after the last update it processed. Backends register themselves
// by name and are selected through configuration.
package offsetstore

import (
	"context"
	"fmt"

	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/internal/storage"
	nberrors "github.com/gezibash/netbridge/pkg/errors"
)

var (
	// ErrNotFound is returned by Load when no offset was saved for a key.
	ErrNotFound = fmt.Errorf("offset %w", nberrors.ErrNotFound)
	// ErrClosed is returned by every operation after Close.
	ErrClosed = fmt.Errorf("offsetstore %w", nberrors.ErrClosed)
)

// Store maps a key (one per bot account) to the next offset to request.
// Implementations must be safe for concurrent use.
type Store interface {
	Load(ctx context.Context, key string) (int64, error)
	Save(ctx context.Context, key string, offset int64) error
	Close() error
}

var registry = storage.NewRegistry[Store]("offsetstore")

// Register makes a backend available under name. Called from backend init
// functions.
func Register(name string, factory storage.Factory[Store], defaults storage.DefaultsFunc) {
	registry.Register(name, factory, defaults)
}

// New creates the named store with config merged over the backend defaults.
func New(ctx context.Context, name string, config map[string]string, metrics *observability.Metrics) (Store, error) {
	return registry.New(ctx, name, config, metrics)
}

// Defaults returns the default configuration of a registered backend.
func Defaults(name string) map[string]string { return registry.Defaults(name) }

// List returns the registered backend names.
func List() []string { return registry.List() }

// LoadOr returns the saved offset for key, or def when none was saved.
func LoadOr(ctx context.Context, s Store, key string, def int64) (int64, error) {
	off, err := s.Load(ctx, key)
	if nberrors.Is(err, ErrNotFound) {
		return def, nil
	}
	return off, err
}
