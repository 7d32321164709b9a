package bot

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/netbridge/internal/bot"
	"github.com/gezibash/netbridge/internal/cli"
	"github.com/gezibash/netbridge/pkg/runtime"
)

func newGetFileCmd(v *viper.Viper) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "get-file <file-id>",
		Short: "Download a file sent to the bot",
		Long: `Download a file by its id into the configured sink.

File ids are reported by "bot run" for voice, audio and sticker messages.

Examples:
  netbridge bot get-file AwACAgIAAxkBAAI...
  netbridge bot get-file AwACAgIAAxkBAAI... --download-dir inbox`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileID := args[0]
			wake := cli.NewWaker()
			h := newHandler()

			return cli.RunCommand(cli.CommandConfig{
				Name:       "bot-get-file",
				Viper:      v,
				Timeout:    timeout,
				Extensions: []runtime.Extension{capability(h, wake, false)},
				Run: func(ctx context.Context, rt *runtime.Runtime, out *cli.Output) error {
					c := bot.From(rt)
					conf := cli.ConfigFrom(rt)
					c.GetFile(fileID, conf.Bot.DownloadDir)

					done := func() bool { return h.downloadedTo() != "" }
					if err := await(ctx, c, h, conf.Host.PollInterval, wake, done); err != nil {
						return err
					}

					return out.Result("bot-get-file", "downloaded").
						With("file_id", fileID).
						With("location", h.downloadedTo()).
						Render()
				},
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "give up after this long")

	return cmd
}
