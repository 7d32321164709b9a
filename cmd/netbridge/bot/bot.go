// Package bot implements the bot commands.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/netbridge/internal/bot"
	"github.com/gezibash/netbridge/internal/cli"
	"github.com/gezibash/netbridge/pkg/runtime"

	// Register storage backends.
	_ "github.com/gezibash/netbridge/internal/filesink/fs"
	_ "github.com/gezibash/netbridge/internal/filesink/s3"
	_ "github.com/gezibash/netbridge/internal/offsetstore/badger"
	_ "github.com/gezibash/netbridge/internal/offsetstore/memory"
	_ "github.com/gezibash/netbridge/internal/offsetstore/redis"
	_ "github.com/gezibash/netbridge/internal/offsetstore/sqlite"
)

var errStopped = errors.New("bot worker stopped")

// Entrypoint returns the bot command.
func Entrypoint(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run and drive a Telegram bot",
		Long: `Run and drive a Telegram bot.

The token is read from bot.token in the config file or from the
NETBRIDGE_BOT_TOKEN environment variable.`,
	}

	f := cmd.PersistentFlags()
	f.String("api-url", "", "Bot API server URL")
	f.String("download-dir", "", "directory for downloads, inside the configured sink")
	_ = v.BindPFlag("bot.api_url", f.Lookup("api-url"))
	_ = v.BindPFlag("bot.download_dir", f.Lookup("download-dir"))

	cmd.AddCommand(newRunCmd(v))
	cmd.AddCommand(newWhoamiCmd(v))
	cmd.AddCommand(newSendCmd(v))
	cmd.AddCommand(newGetFileCmd(v))
	return cmd
}

// capability starts the bot client with the loaded configuration. The
// offset store is only opened when persist is set, so one-shot commands
// leave the offset of a long-running bot alone.
func capability(h bot.Handler, wake *cli.Waker, persist bool) runtime.Extension {
	return func(rt *runtime.Runtime) error {
		b := cli.ConfigFrom(rt).Bot
		if b.Token == "" {
			return errors.New("bot token required: set bot.token or NETBRIDGE_BOT_TOKEN")
		}

		cfg := bot.Config{
			Token:           b.Token,
			APIURL:          b.APIURL,
			PollTimeout:     b.PollTimeout,
			RequestCapacity: b.RequestCapacity,
			ReplyCapacity:   b.ReplyCapacity,
			SinkBackend:     b.Sink.Backend,
			SinkConfig:      b.Sink.Config,
			Notifier:        wake,
		}
		if persist {
			cfg.OffsetsBackend = b.Offsets.Backend
			cfg.OffsetsConfig = b.Offsets.Config
		}
		return bot.Capability(cfg, h)(rt)
	}
}

// await processes results until done reports true. Error notices, the
// worker stopping and ctx ending first are failures.
func await(ctx context.Context, c *bot.Client, h *handler, interval time.Duration, wake *cli.Waker, done func() bool) error {
	err := cli.Poll(ctx, interval, wake, func(context.Context) error {
		stopped := closed(c.Done())
		c.Process()
		if msg := h.firstError(); msg != "" {
			return errors.New(msg)
		}
		if done() {
			return cli.ErrDone
		}
		if stopped {
			return errStopped
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !done() {
		return fmt.Errorf("no reply: %w", context.Cause(ctx))
	}
	return nil
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
