// Package config provides the configuration model, defaults and loader for
// netbridge hosts.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (NETBRIDGE_BOT_TOKEN).
const EnvPrefix = "NETBRIDGE"

// Defaults contains the default values applied before flags, env and file.
var Defaults = struct {
	LogLevel     string
	LogFormat    string
	OTLPProtocol string
	ServiceName  string
	PollInterval time.Duration
	Output       string

	RetryAttempts     int
	RetryDelay        time.Duration
	UnregisterTimeout time.Duration
	BrowseInterval    time.Duration

	Trim string

	Transport     string
	MQTTPort      int
	ClientID      string
	KeepAlive     time.Duration
	QueueCapacity int

	APIURL          string
	PollTimeout     time.Duration
	RequestCapacity int
	ReplyCapacity   int
	SinkBackend     string
	OffsetsBackend  string
}{
	LogLevel:     "info",
	LogFormat:    "text",
	OTLPProtocol: "http",
	ServiceName:  "netbridge",
	PollInterval: 50 * time.Millisecond,
	Output:       "text",

	RetryAttempts:     2,
	RetryDelay:        10 * time.Millisecond,
	UnregisterTimeout: time.Second,
	BrowseInterval:    time.Second,

	Trim: "none",

	Transport:     "mqtt",
	MQTTPort:      1883,
	ClientID:      "netbridge_mqtt",
	KeepAlive:     5 * time.Second,
	QueueCapacity: 10,

	APIURL:          "https://api.telegram.org",
	PollTimeout:     10 * time.Second,
	RequestCapacity: 32,
	ReplyCapacity:   16,
	SinkBackend:     "fs",
	OffsetsBackend:  "badger",
}

// DefaultDataDir returns the default data directory (~/.netbridge).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".netbridge"
	}
	return filepath.Join(home, ".netbridge")
}

// SetDefaults configures every default on a Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())

	v.SetDefault("observability.log_level", Defaults.LogLevel)
	v.SetDefault("observability.log_format", Defaults.LogFormat)
	v.SetDefault("observability.metrics_addr", "")
	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.otlp_protocol", Defaults.OTLPProtocol)
	v.SetDefault("observability.service_name", Defaults.ServiceName)

	v.SetDefault("host.poll_interval", Defaults.PollInterval)
	v.SetDefault("host.output", Defaults.Output)

	v.SetDefault("discovery.retry_attempts", Defaults.RetryAttempts)
	v.SetDefault("discovery.retry_delay", Defaults.RetryDelay)
	v.SetDefault("discovery.unregister_timeout", Defaults.UnregisterTimeout)
	v.SetDefault("discovery.browse_interval", Defaults.BrowseInterval)

	v.SetDefault("socket.trim", Defaults.Trim)

	v.SetDefault("pubsub.transport", Defaults.Transport)
	v.SetDefault("pubsub.host", "localhost")
	v.SetDefault("pubsub.port", Defaults.MQTTPort)
	v.SetDefault("pubsub.client_id", Defaults.ClientID)
	v.SetDefault("pubsub.keep_alive", Defaults.KeepAlive)
	v.SetDefault("pubsub.queue_capacity", Defaults.QueueCapacity)

	v.SetDefault("bot.api_url", Defaults.APIURL)
	v.SetDefault("bot.poll_timeout", Defaults.PollTimeout)
	v.SetDefault("bot.request_capacity", Defaults.RequestCapacity)
	v.SetDefault("bot.reply_capacity", Defaults.ReplyCapacity)
	v.SetDefault("bot.download_dir", ".")
	v.SetDefault("bot.sink.backend", Defaults.SinkBackend)
	v.SetDefault("bot.offsets.backend", Defaults.OffsetsBackend)
}
