package bot

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/netbridge/cmd/netbridge/host"
	"github.com/gezibash/netbridge/internal/bot"
	"github.com/gezibash/netbridge/internal/cli"
	"github.com/gezibash/netbridge/pkg/runtime"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	var (
		flags        host.Flags
		autoDownload bool
		echo         bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Receive updates until interrupted",
		Long: `Long-poll the Bot API and report every inbound message.

The update offset is persisted in the configured offset store, so a
restarted bot does not see the same updates twice.

Examples:
  netbridge bot run
  netbridge bot run --auto-download            # fetch voice and audio files
  netbridge bot run --echo                     # answer text with the same text
  netbridge bot run --filter 'kind == "text" && chat == 12345' -o json
  netbridge bot run --tui`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wake := cli.NewWaker()
			h := newHandler()

			return cli.RunCommand(cli.CommandConfig{
				Name:       "bot-run",
				Viper:      v,
				LogToFile:  flags.UseTUI(),
				Extensions: []runtime.Extension{capability(h, wake, true)},
				Run: func(ctx context.Context, rt *runtime.Runtime, out *cli.Output) error {
					c := bot.From(rt)
					conf := cli.ConfigFrom(rt)

					if autoDownload {
						h.onMedia = func(fileID string) { c.GetFile(fileID, conf.Bot.DownloadDir) }
					}
					if echo {
						h.onText = func(m bot.TextMessage) { c.SendText(m.ChatID, m.MessageID, m.Text) }
					}
					c.Whoami()

					session := host.Session{Adapter: "bot", Target: bot.OffsetKey(conf.Bot.Token)}
					return host.Run(ctx, &flags, out, h.em, session, func(ctx context.Context) error {
						return cli.Poll(ctx, conf.Host.PollInterval, wake, func(context.Context) error {
							stopped := closed(c.Done())
							c.Process()
							if !stopped {
								return nil
							}
							if msg := h.firstError(); msg != "" {
								return fmt.Errorf("%w: %s", errStopped, msg)
							}
							return errStopped
						})
					})
				},
			})
		},
	}

	flags.Bind(cmd)
	cmd.Flags().BoolVar(&autoDownload, "auto-download", false, "download inbound voice and audio files to bot.download_dir")
	cmd.Flags().BoolVar(&echo, "echo", false, "reply to every text message with its own text")

	return cmd
}
