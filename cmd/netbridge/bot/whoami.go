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

func newWhoamiCmd(v *viper.Viper) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the bot account behind the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wake := cli.NewWaker()
			h := newHandler()

			return cli.RunCommand(cli.CommandConfig{
				Name:       "bot-whoami",
				Viper:      v,
				Timeout:    timeout,
				Extensions: []runtime.Extension{capability(h, wake, false)},
				Run: func(ctx context.Context, rt *runtime.Runtime, out *cli.Output) error {
					c := bot.From(rt)
					c.Whoami()

					interval := cli.ConfigFrom(rt).Host.PollInterval
					if err := await(ctx, c, h, interval, wake, func() bool { _, ok := h.whoami(); return ok }); err != nil {
						return err
					}

					u, _ := h.whoami()
					return out.KV("bot-whoami").ForAdapter("bot").
						Set("ID", u.ID).
						Set("First Name", u.FirstName).
						Set("Username", "@"+u.UserName).
						Render()
				},
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "give up after this long")

	return cmd
}
