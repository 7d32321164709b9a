package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gezibash/netbridge/internal/filesink"
)

func newTestBackend(t *testing.T, root string) *Backend {
	t.Helper()
	s, err := NewFactory(context.Background(), map[string]string{KeyPath: root, KeyFilePermissions: "0600"})
	if err != nil {
		t.Fatal(err)
	}
	return s.(*Backend)
}

// --- Commit ---

func TestCommitPublishesFile(t *testing.T) {
	root := t.TempDir()
	b := newTestBackend(t, root)
	ctx := context.Background()

	w, err := b.Create(ctx, "voice/note.oga")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(root, "voice", "note.oga")
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("destination visible before commit: %v", err)
	}

	loc, err := w.Commit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loc != dest {
		t.Errorf("location = %q, want %q", loc, dest)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "hello" {
		t.Fatalf("ReadFile = %q, %v", data, err)
	}
	info, _ := os.Stat(dest)
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %o, want 600", info.Mode().Perm())
	}

	if _, err := w.Commit(ctx); err == nil {
		t.Error("second commit should fail")
	}
}

func TestAbortLeavesNothing(t *testing.T) {
	root := t.TempDir()
	b := newTestBackend(t, root)

	w, err := b.Create(context.Background(), "a.bin")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte("partial"))
	if err := w.Abort(); err != nil {
		t.Fatal(err)
	}

	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Errorf("expected empty dir, got %d entries", len(entries))
	}
}

func TestAbsoluteNamesIgnoreRoot(t *testing.T) {
	b := newTestBackend(t, t.TempDir())
	other := filepath.Join(t.TempDir(), "x.txt")

	w, err := b.Create(context.Background(), other)
	if err != nil {
		t.Fatal(err)
	}
	loc, err := w.Commit(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if loc != other {
		t.Errorf("location = %q, want %q", loc, other)
	}
}

// --- Lifecycle ---

func TestClosedSink(t *testing.T) {
	b := newTestBackend(t, t.TempDir())
	_ = b.Close()
	if _, err := b.Create(context.Background(), "x"); !errors.Is(err, filesink.ErrClosed) {
		t.Errorf("Create after close = %v", err)
	}
}

func TestBadPermissions(t *testing.T) {
	_, err := NewFactory(context.Background(), map[string]string{KeyDirPermissions: "rwx"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRegistered(t *testing.T) {
	s, err := filesink.New(context.Background(), "fs", map[string]string{KeyPath: t.TempDir()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*Backend); !ok {
		t.Errorf("got %T", s)
	}
}
