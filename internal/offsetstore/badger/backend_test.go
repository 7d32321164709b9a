package badger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gezibash/netbridge/internal/offsetstore"
)

func newTestBackend(t *testing.T) offsetstore.Store {
	t.Helper()
	be, err := NewFactory(context.Background(), map[string]string{KeyInMemory: "true"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { be.Close() })
	return be
}

func TestSaveAndLoad(t *testing.T) {
	be := newTestBackend(t)
	ctx := context.Background()

	if _, err := be.Load(ctx, "bot"); !errors.Is(err, offsetstore.ErrNotFound) {
		t.Fatalf("Load(missing) err = %v, want ErrNotFound", err)
	}

	for _, off := range []int64{1, 1 << 40, 17} {
		if err := be.Save(ctx, "bot", off); err != nil {
			t.Fatalf("Save(%d): %v", off, err)
		}
		got, err := be.Load(ctx, "bot")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got != off {
			t.Errorf("Load = %d, want %d", got, off)
		}
	}
}

func TestKeysAreIndependent(t *testing.T) {
	be := newTestBackend(t)
	ctx := context.Background()

	_ = be.Save(ctx, "a", 1)
	_ = be.Save(ctx, "b", 2)

	if got, _ := be.Load(ctx, "a"); got != 1 {
		t.Errorf("a = %d, want 1", got)
	}
	if got, _ := be.Load(ctx, "b"); got != 2 {
		t.Errorf("b = %d, want 2", got)
	}
}

func TestClosed(t *testing.T) {
	be := newTestBackend(t)
	if err := be.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := be.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := be.Save(context.Background(), "bot", 1); !errors.Is(err, offsetstore.ErrClosed) {
		t.Errorf("Save after close = %v, want ErrClosed", err)
	}
	if _, err := be.Load(context.Background(), "bot"); !errors.Is(err, offsetstore.ErrClosed) {
		t.Errorf("Load after close = %v, want ErrClosed", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "offsets")
	ctx := context.Background()

	be, err := NewFactory(ctx, map[string]string{KeyPath: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := be.Save(ctx, "bot", 99); err != nil {
		t.Fatal(err)
	}
	be.Close()

	be, err = NewFactory(ctx, map[string]string{KeyPath: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer be.Close()
	if got, err := be.Load(ctx, "bot"); err != nil || got != 99 {
		t.Errorf("Load after reopen = %d, %v; want 99", got, err)
	}
}

func TestFactoryValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  map[string]string
	}{
		{"empty path", map[string]string{KeyPath: ""}},
		{"bad in_memory", map[string]string{KeyInMemory: "maybe"}},
		{"bad sync_writes", map[string]string{KeyPath: "x", KeySyncWrites: "often"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if p, ok := cfg[KeyPath]; ok && p != "" {
				cfg[KeyPath] = filepath.Join(t.TempDir(), p)
			}
			if _, err := NewFactory(context.Background(), cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}
