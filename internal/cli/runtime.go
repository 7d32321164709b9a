// Package cli provides helpers for building netbridge commands on the
// runtime pattern: config loading, observability, output rendering and the
// host poll loop.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gezibash/netbridge/internal/config"
	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/pkg/runtime"
)

const configKey = "cli.config"

// NewBuilder creates a runtime builder for cfg that logs through obs and
// exposes both to extensions, via ConfigFrom and observability.From.
func NewBuilder(name string, cfg config.Config, obs *observability.Observability) *runtime.Builder {
	return runtime.New(name).
		DataDir(cfg.ResolvedDataDir()).
		Logger(obs.Log()).
		Use(func(rt *runtime.Runtime) error {
			rt.Set(configKey, cfg)
			return nil
		}).
		Use(observability.Attach(obs))
}

// LogWriter returns where command logs go. With toFile set they are written
// to {data_dir}/log/netbridge.log so they do not tear a full-screen UI;
// otherwise they go to stderr. The returned func closes the file.
func LogWriter(cfg config.Config, toFile bool) (io.Writer, func() error) {
	nop := func() error { return nil }
	if !toFile {
		return os.Stderr, nop
	}
	logDir := filepath.Join(cfg.ResolvedDataDir(), "log")
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return io.Discard, nop
	}
	f, err := os.OpenFile(filepath.Join(logDir, "netbridge.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // path is constructed from known data dir
	if err != nil {
		return io.Discard, nop
	}
	return f, f.Close
}

// ConfigFrom returns the configuration a command runtime was built with.
func ConfigFrom(rt *runtime.Runtime) config.Config {
	cfg, _ := rt.Get(configKey).(config.Config)
	return cfg
}
