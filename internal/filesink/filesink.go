// Package filesink defines where downloaded files end up. Backends register
// themselves by name and are selected through configuration.
package filesink

import (
	"context"
	"errors"
	"io"

	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/internal/storage"
)

// ErrClosed indicates the sink has been closed.
var ErrClosed = errors.New("sink closed")

// Writer receives the content of one file. Nothing is visible at the
// destination until Commit succeeds; Abort discards what was written.
type Writer interface {
	io.Writer
	// Commit publishes the file and returns where it was stored.
	Commit(ctx context.Context) (location string, err error)
	Abort() error
}

// Sink creates destination files. Implementations must be safe for
// concurrent use.
type Sink interface {
	// Create opens a writer for name, a slash-separated relative or
	// absolute path interpreted by the backend.
	Create(ctx context.Context, name string) (Writer, error)
	Close() error
}

var registry = storage.NewRegistry[Sink]("filesink")

// Register makes a backend available under name. Called from backend init
// functions.
func Register(name string, factory storage.Factory[Sink], defaults storage.DefaultsFunc) {
	registry.Register(name, factory, defaults)
}

// New creates the named sink with config merged over the backend defaults.
func New(ctx context.Context, name string, config map[string]string, metrics *observability.Metrics) (Sink, error) {
	return registry.New(ctx, name, config, metrics)
}

// List returns the registered backend names.
func List() []string { return registry.List() }
