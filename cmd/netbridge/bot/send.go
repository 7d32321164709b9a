package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/netbridge/internal/bot"
	"github.com/gezibash/netbridge/internal/cli"
	"github.com/gezibash/netbridge/pkg/runtime"
)

func newSendCmd(v *viper.Viper) *cobra.Command {
	var (
		replyTo int
		audio   string
		voice   string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send <chat-id> [text...]",
		Short: "Send a text message, audio file or voice note",
		Long: `Send one message to a chat and wait until the API has accepted it.

Examples:
  netbridge bot send 12345 hello there
  netbridge bot send 12345 "got it" --reply-to 678
  netbridge bot send 12345 --audio ./track.mp3
  netbridge bot send 12345 --voice ./note.ogg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat id %q: %w", args[0], err)
			}
			text := strings.Join(args[1:], " ")

			kinds := 0
			for _, set := range []bool{text != "", audio != "", voice != ""} {
				if set {
					kinds++
				}
			}
			if kinds != 1 {
				return errors.New("give exactly one of: text, --audio, --voice")
			}

			wake := cli.NewWaker()
			h := newHandler()

			return cli.RunCommand(cli.CommandConfig{
				Name:       "bot-send",
				Viper:      v,
				Timeout:    timeout,
				Extensions: []runtime.Extension{capability(h, wake, false)},
				Run: func(ctx context.Context, rt *runtime.Runtime, out *cli.Output) error {
					c := bot.From(rt)

					var kind string
					switch {
					case audio != "":
						kind = "audio"
						c.SendAudio(chatID, audio)
					case voice != "":
						kind = "voice"
						c.SendVoice(chatID, voice)
					default:
						kind = "text"
						c.SendText(chatID, replyTo, text)
					}
					// Requests run in order, so the whoami answer arrives
					// only after the send has completed or failed.
					c.Whoami()

					interval := cli.ConfigFrom(rt).Host.PollInterval
					if err := await(ctx, c, h, interval, wake, func() bool { _, ok := h.whoami(); return ok }); err != nil {
						return err
					}

					u, _ := h.whoami()
					return out.Result("bot-send", "sent").
						With("chat", chatID).
						With("kind", kind).
						With("from", "@"+u.UserName).
						Render()
				},
			})
		},
	}

	cmd.Flags().IntVar(&replyTo, "reply-to", 0, "message id to reply to")
	cmd.Flags().StringVar(&audio, "audio", "", "send this audio file")
	cmd.Flags().StringVar(&voice, "voice", "", "send this voice note")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "give up after this long")

	return cmd
}
