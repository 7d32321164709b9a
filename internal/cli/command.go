package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/gezibash/netbridge/internal/config"
	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/pkg/runtime"
)

// Version is reported to tracing as the service version. main sets it.
var Version = "dev"

// CommandConfig configures a CLI command that uses the runtime pattern.
type CommandConfig struct {
	// Name identifies this command (for runtime/logging).
	Name string

	// Viper holds the command's configuration.
	Viper *viper.Viper

	// Timeout for the command operation. Zero means no timeout.
	Timeout time.Duration

	// LogToFile sends logs to the data directory instead of stderr.
	LogToFile bool

	// Extensions are applied to the runtime (e.g. discovery.Attach).
	Extensions []runtime.Extension

	// Run is the command's business logic.
	Run func(ctx context.Context, rt *runtime.Runtime, out *Output) error
}

// RunCommand executes a CLI command with standard infrastructure setup:
// config.Load -> observability -> runtime (extensions) -> timeout -> Output
// -> Run -> Close.
func RunCommand(cfg CommandConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("command name required")
	}
	if cfg.Viper == nil {
		return fmt.Errorf("viper required")
	}
	if cfg.Run == nil {
		return fmt.Errorf("run function required")
	}

	conf, err := config.Load(cfg.Viper, cfg.Viper.GetString("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logw, closeLog := LogWriter(conf, cfg.LogToFile)
	defer func() { _ = closeLog() }()

	obs, err := observability.New(context.Background(), observability.ObsConfig{
		LogLevel:       conf.Observability.LogLevel,
		LogFormat:      conf.Observability.LogFormat,
		OTLPEndpoint:   conf.Observability.OTLPEndpoint,
		OTLPProtocol:   conf.Observability.OTLPProtocol,
		ServiceName:    conf.Observability.ServiceName,
		ServiceVersion: Version,
	}, logw)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Close(ctx)
	}()

	if addr := conf.Observability.MetricsAddr; addr != "" {
		if _, err := obs.ServeMetrics(addr); err != nil {
			return err
		}
	}

	builder := NewBuilder(cfg.Name, conf, obs)
	for _, ext := range cfg.Extensions {
		builder = builder.Use(ext)
	}

	rt, err := builder.Build()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer func() { _ = rt.Close() }()

	ctx := rt.Context()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	out := NewOutput(ParseFormat(conf.Host.Output), stdout)

	return cfg.Run(ctx, rt, out)
}
