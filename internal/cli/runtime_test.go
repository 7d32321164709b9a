package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gezibash/netbridge/internal/config"
	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/pkg/runtime"
)

func TestNewBuilder(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{DataDir: dir}
	cfg.Bot.Token = "9:xyz"

	var logs bytes.Buffer
	obs, err := observability.New(context.Background(), observability.ObsConfig{LogLevel: "debug", LogFormat: "json"}, &logs)
	if err != nil {
		t.Fatalf("observability.New: %v", err)
	}

	rt, err := NewBuilder("builder-test", cfg, obs).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer func() { _ = rt.Close() }()

	if rt.DataDir() != dir {
		t.Errorf("DataDir() = %q, want %q", rt.DataDir(), dir)
	}
	if ConfigFrom(rt).Bot.Token != "9:xyz" {
		t.Errorf("ConfigFrom: token = %q", ConfigFrom(rt).Bot.Token)
	}
	if observability.From(rt) != obs {
		t.Error("ObservabilityFrom returned a different instance")
	}
	if observability.MetricsFrom(rt) != obs.Metrics {
		t.Error("MetricsFrom returned a different instance")
	}

	rt.Log().Info("through the runtime")
	if !bytes.Contains(logs.Bytes(), []byte("through the runtime")) {
		t.Errorf("runtime logger not wired to observability: %q", logs.String())
	}
}

func TestFromHelpersOnBareRuntime(t *testing.T) {
	rt, err := runtime.Compose("bare", runtime.WithDataDir(t.TempDir()), runtime.WithoutSignals())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	defer func() { _ = rt.Close() }()

	if observability.From(rt) != nil {
		t.Error("ObservabilityFrom should be nil")
	}
	if observability.MetricsFrom(rt) != nil {
		t.Error("MetricsFrom should be nil")
	}
	if ConfigFrom(rt).Bot.Token != "" {
		t.Error("ConfigFrom should be zero")
	}
}

func TestLogWriter(t *testing.T) {
	t.Run("stderr by default", func(t *testing.T) {
		w, closeFn := LogWriter(config.Config{DataDir: t.TempDir()}, false)
		defer func() { _ = closeFn() }()
		if w != os.Stderr {
			t.Errorf("writer = %v, want stderr", w)
		}
	})

	t.Run("file under data dir", func(t *testing.T) {
		dir := t.TempDir()
		w, closeFn := LogWriter(config.Config{DataDir: dir}, true)
		if _, err := w.Write([]byte("hello\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := closeFn(); err != nil {
			t.Fatalf("close: %v", err)
		}

		path := filepath.Join(dir, "log", "netbridge.log")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if string(data) != "hello\n" {
			t.Errorf("log = %q", data)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("mode = %v, want 0600", info.Mode().Perm())
		}
	})
}
