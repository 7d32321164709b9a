// Package fs writes downloads to the local filesystem.
package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gezibash/netbridge/internal/filesink"
	"github.com/gezibash/netbridge/internal/storage"
)

const (
	KeyPath            = "path"
	KeyDirPermissions  = "dir_permissions"
	KeyFilePermissions = "file_permissions"
)

func init() {
	filesink.Register("fs", NewFactory, Defaults)
}

// Defaults returns the default configuration for the filesystem sink.
// An empty path resolves relative names against the working directory.
func Defaults() map[string]string {
	return map[string]string{
		KeyPath:            "",
		KeyDirPermissions:  "0755",
		KeyFilePermissions: "0644",
	}
}

// NewFactory creates a filesystem sink from a configuration map.
func NewFactory(_ context.Context, config map[string]string) (filesink.Sink, error) {
	root := storage.GetString(config, KeyPath, "")
	if root != "" {
		root = storage.ExpandPath(root)
	}

	dirPerms, err := storage.GetFileMode(config, KeyDirPermissions, 0o755)
	if err != nil {
		return nil, err
	}
	filePerms, err := storage.GetFileMode(config, KeyFilePermissions, 0o644)
	if err != nil {
		return nil, err
	}

	if root != "" {
		if err := os.MkdirAll(root, dirPerms); err != nil {
			return nil, storage.NewConfigErrorWithCause("fs", KeyPath, "failed to create directory", err)
		}
	}

	slog.Debug("fs filesink initialized", "path", root, "file_permissions", fmt.Sprintf("%04o", filePerms))

	return &Backend{root: root, dirPerms: dirPerms, filePerms: filePerms}, nil
}

// Backend is a filesystem implementation of filesink.Sink. Files are
// written to a temporary sibling and renamed into place on Commit.
type Backend struct {
	root      string
	dirPerms  os.FileMode
	filePerms os.FileMode
	closed    atomic.Bool
}

func (b *Backend) path(name string) string {
	name = filepath.FromSlash(name)
	if filepath.IsAbs(name) || b.root == "" {
		return filepath.Clean(name)
	}
	return filepath.Join(b.root, name)
}

// Create opens a temporary file next to the destination.
func (b *Backend) Create(_ context.Context, name string) (filesink.Writer, error) {
	if b.closed.Load() {
		return nil, filesink.ErrClosed
	}

	dest := b.path(name)
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, b.dirPerms); err != nil {
		return nil, fmt.Errorf("fs create: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return nil, fmt.Errorf("fs create: %w", err)
	}
	return &writer{f: tmp, dest: dest, perms: b.filePerms}, nil
}

// Close marks the sink as closed.
func (b *Backend) Close() error {
	b.closed.Store(true)
	return nil
}

type writer struct {
	f     *os.File
	dest  string
	perms os.FileMode
	done  bool
}

func (w *writer) Write(p []byte) (int, error) { return w.f.Write(p) }

func (w *writer) Commit(context.Context) (string, error) {
	if w.done {
		return "", fmt.Errorf("fs commit: %s already finished", w.dest)
	}
	w.done = true
	tmpName := w.f.Name()

	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("file flush error: %w", err)
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("file flush error: %w", err)
	}
	if err := os.Chmod(tmpName, w.perms); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("fs commit: %w", err)
	}
	if err := os.Rename(tmpName, w.dest); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("fs commit: %w", err)
	}
	return w.dest, nil
}

func (w *writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	_ = w.f.Close()
	if err := os.Remove(w.f.Name()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("fs abort: %w", err)
	}
	return nil
}
