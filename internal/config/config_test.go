package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "netbridge.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// --- Defaults ---

func TestDefaultDataDir(t *testing.T) {
	dataDir := DefaultDataDir()
	if !strings.HasSuffix(dataDir, ".netbridge") {
		t.Errorf("DefaultDataDir() should end with .netbridge, got: %s", dataDir)
	}
	if !filepath.IsAbs(dataDir) {
		t.Errorf("DefaultDataDir() should return absolute path, got: %s", dataDir)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load with no config file should not error, got: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"data_dir", cfg.DataDir, DefaultDataDir()},
		{"log_level", cfg.Observability.LogLevel, "info"},
		{"log_format", cfg.Observability.LogFormat, "text"},
		{"metrics_addr", cfg.Observability.MetricsAddr, ""},
		{"otlp_protocol", cfg.Observability.OTLPProtocol, "http"},
		{"poll_interval", cfg.Host.PollInterval, 50 * time.Millisecond},
		{"retry_attempts", cfg.Discovery.RetryAttempts, 2},
		{"retry_delay", cfg.Discovery.RetryDelay, 10 * time.Millisecond},
		{"trim", cfg.Socket.Trim, "none"},
		{"transport", cfg.PubSub.Transport, "mqtt"},
		{"port", cfg.PubSub.Port, 1883},
		{"client_id", cfg.PubSub.ClientID, "netbridge_mqtt"},
		{"keep_alive", cfg.PubSub.KeepAlive, 5 * time.Second},
		{"queue_capacity", cfg.PubSub.QueueCapacity, 10},
		{"api_url", cfg.Bot.APIURL, "https://api.telegram.org"},
		{"poll_timeout", cfg.Bot.PollTimeout, 10 * time.Second},
		{"request_capacity", cfg.Bot.RequestCapacity, 32},
		{"reply_capacity", cfg.Bot.ReplyCapacity, 16},
		{"sink", cfg.Bot.Sink.Backend, "fs"},
		{"offsets", cfg.Bot.Offsets.Backend, "badger"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

// --- Sources ---

func TestLoadWithEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NETBRIDGE_BOT_TOKEN", "123:abc")
	t.Setenv("NETBRIDGE_OBSERVABILITY_LOG_LEVEL", "debug")
	t.Setenv("NETBRIDGE_PUBSUB_PORT", "8883")
	t.Setenv("NETBRIDGE_DATA_DIR", "/custom/data/dir")

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load with env overrides should not error, got: %v", err)
	}
	if cfg.Bot.Token != "123:abc" {
		t.Errorf("Bot.Token = %q", cfg.Bot.Token)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.Observability.LogLevel)
	}
	if cfg.PubSub.Port != 8883 {
		t.Errorf("PubSub.Port = %d", cfg.PubSub.Port)
	}
	if cfg.DataDir != "/custom/data/dir" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	path := writeConfig(t, `
data_dir: /tmp/netbridge-test
observability:
  log_level: warn
  log_format: json
  metrics_addr: :9091
host:
  poll_interval: 20ms
discovery:
  interfaces: [ipv4, "!eth1"]
  retry_attempts: 3
  retry_delay: 5ms
socket:
  trim: both
pubsub:
  transport: nats
  nats_url: nats://127.0.0.1:4222
bot:
  token: "42:secret"
  poll_timeout: 30s
  sink:
    backend: s3
    config:
      bucket: downloads
      region: us-west-2
  offsets:
    backend: redis
    config:
      addr: localhost:6379
`)

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("Load with config file should not error, got: %v", err)
	}

	if cfg.DataDir != "/tmp/netbridge-test" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Observability.LogFormat != "json" || cfg.Observability.MetricsAddr != ":9091" {
		t.Errorf("Observability = %+v", cfg.Observability)
	}
	if cfg.Host.PollInterval != 20*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.Host.PollInterval)
	}
	if len(cfg.Discovery.Interfaces) != 2 || cfg.Discovery.Interfaces[1] != "!eth1" {
		t.Errorf("Interfaces = %v", cfg.Discovery.Interfaces)
	}
	if cfg.Discovery.RetryAttempts != 3 || cfg.Discovery.RetryDelay != 5*time.Millisecond {
		t.Errorf("Discovery = %+v", cfg.Discovery)
	}
	if cfg.Socket.Trim != "both" {
		t.Errorf("Trim = %q", cfg.Socket.Trim)
	}
	if cfg.PubSub.Transport != "nats" || cfg.PubSub.NATSURL != "nats://127.0.0.1:4222" {
		t.Errorf("PubSub = %+v", cfg.PubSub)
	}
	if cfg.Bot.PollTimeout != 30*time.Second {
		t.Errorf("PollTimeout = %v", cfg.Bot.PollTimeout)
	}
	if cfg.Bot.Sink.Backend != "s3" || cfg.Bot.Sink.Config["bucket"] != "downloads" {
		t.Errorf("Sink = %+v", cfg.Bot.Sink)
	}
	if cfg.Bot.Offsets.Backend != "redis" || cfg.Bot.Offsets.Config["addr"] != "localhost:6379" {
		t.Errorf("Offsets = %+v", cfg.Bot.Offsets)
	}
	// Untouched sections keep their defaults.
	if cfg.Bot.RequestCapacity != 32 {
		t.Errorf("RequestCapacity = %d", cfg.Bot.RequestCapacity)
	}
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	if _, err := Load(viper.New(), "/nonexistent/path/to/netbridge.yaml"); err == nil {
		t.Error("Load with explicit missing config file should error")
	}
}

// --- Validation ---

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"transport", "pubsub:\n  transport: amqp\n", "pubsub.transport"},
		{"trim", "socket:\n  trim: middle\n", "socket.trim"},
		{"output", "host:\n  output: xml\n", "host.output"},
		{"poll interval", "host:\n  poll_interval: 0s\n", "host.poll_interval"},
		{"retry attempts", "discovery:\n  retry_attempts: 0\n", "discovery.retry_attempts"},
		{"capacity", "bot:\n  reply_capacity: 0\n", "capacities"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(viper.New(), writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestResolvedDataDir(t *testing.T) {
	if got := (Config{DataDir: "/custom"}).ResolvedDataDir(); got != "/custom" {
		t.Errorf("ResolvedDataDir() = %q", got)
	}
	if got := (Config{}).ResolvedDataDir(); got != DefaultDataDir() {
		t.Errorf("ResolvedDataDir() = %q, want default", got)
	}
}
