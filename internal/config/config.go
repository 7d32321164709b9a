package config

import (
	"fmt"
	"time"
)

// Config is the full netbridge configuration.
type Config struct {
	DataDir       string              `mapstructure:"data_dir"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Host          HostConfig          `mapstructure:"host"`
	Discovery     DiscoveryConfig     `mapstructure:"discovery"`
	Socket        SocketConfig        `mapstructure:"socket"`
	PubSub        PubSubConfig        `mapstructure:"pubsub"`
	Bot           BotConfig           `mapstructure:"bot"`
}

// ObservabilityConfig holds logging, metrics and tracing settings.
type ObservabilityConfig struct {
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPProtocol string `mapstructure:"otlp_protocol"`
	ServiceName  string `mapstructure:"service_name"`
}

// HostConfig controls the polling host loop.
type HostConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Output       string        `mapstructure:"output"`
}

type DiscoveryConfig struct {
	Interfaces        []string      `mapstructure:"interfaces"`
	RetryAttempts     int           `mapstructure:"retry_attempts"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	UnregisterTimeout time.Duration `mapstructure:"unregister_timeout"`
	BrowseInterval    time.Duration `mapstructure:"browse_interval"`
}

type SocketConfig struct {
	Trim string `mapstructure:"trim"`
}

type PubSubConfig struct {
	Transport     string        `mapstructure:"transport"`
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	ClientID      string        `mapstructure:"client_id"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	KeepAlive     time.Duration `mapstructure:"keep_alive"`
	QueueCapacity int           `mapstructure:"queue_capacity"`
	NATSURL       string        `mapstructure:"nats_url"`
}

type BotConfig struct {
	Token           string        `mapstructure:"token"`
	APIURL          string        `mapstructure:"api_url"`
	PollTimeout     time.Duration `mapstructure:"poll_timeout"`
	RequestCapacity int           `mapstructure:"request_capacity"`
	ReplyCapacity   int           `mapstructure:"reply_capacity"`
	DownloadDir     string        `mapstructure:"download_dir"`
	Sink            BackendConfig `mapstructure:"sink"`
	Offsets         BackendConfig `mapstructure:"offsets"`
}

// BackendConfig selects a registered backend and passes it string options.
type BackendConfig struct {
	Backend string            `mapstructure:"backend"`
	Config  map[string]string `mapstructure:"config"`
}

// ResolvedDataDir returns the data directory from config, or the default.
func (c Config) ResolvedDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return DefaultDataDir()
}

// Validate checks the enumerated and positive-valued fields.
func (c Config) Validate() error {
	switch c.PubSub.Transport {
	case "mqtt", "nats":
	default:
		return fmt.Errorf("pubsub.transport: unknown transport %q (want mqtt or nats)", c.PubSub.Transport)
	}
	switch c.Socket.Trim {
	case "none", "start", "end", "both":
	default:
		return fmt.Errorf("socket.trim: unknown mode %q (want none, start, end or both)", c.Socket.Trim)
	}
	switch c.Host.Output {
	case "text", "json", "markdown", "md":
	default:
		return fmt.Errorf("host.output: unknown format %q", c.Host.Output)
	}
	if c.Host.PollInterval <= 0 {
		return fmt.Errorf("host.poll_interval: must be positive")
	}
	if c.Discovery.RetryAttempts < 1 {
		return fmt.Errorf("discovery.retry_attempts: must be at least 1")
	}
	if c.Bot.RequestCapacity < 1 || c.Bot.ReplyCapacity < 1 {
		return fmt.Errorf("bot: queue capacities must be at least 1")
	}
	return nil
}
