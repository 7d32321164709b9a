// Package memory provides an in-memory offset store. Offsets are lost when
// the process exits.
package memory

import (
	"context"

	"github.com/gezibash/netbridge/internal/offsetstore"
	"github.com/gezibash/netbridge/internal/offsetstore/badger"
)

func init() {
	offsetstore.Register("memory", NewFactory, Defaults)
}

// Defaults returns the default configuration for the memory backend.
func Defaults() map[string]string {
	return map[string]string{
		badger.KeyInMemory: "true",
	}
}

// NewFactory creates a store using BadgerDB's in-memory mode.
func NewFactory(ctx context.Context, config map[string]string) (offsetstore.Store, error) {
	if config == nil {
		config = make(map[string]string, 1)
	}
	config[badger.KeyInMemory] = "true"
	return badger.NewFactory(ctx, config)
}
