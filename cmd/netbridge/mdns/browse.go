package mdns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/netbridge/cmd/netbridge/host"
	"github.com/gezibash/netbridge/internal/cli"
	"github.com/gezibash/netbridge/internal/discovery"
	"github.com/gezibash/netbridge/pkg/runtime"
)

func newBrowseCmd(v *viper.Viper) *cobra.Command {
	var (
		flags   host.Flags
		timeout time.Duration
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "browse <service-type>...",
		Short: "Report services as they appear, resolve and go away",
		Long: `Browse one or more DNS-SD service types on the local network.

Every instance is reported when found, again with host, port, addresses
and TXT records once resolved, and when it goes away.

Examples:
  netbridge mdns browse _osc._udp
  netbridge mdns browse _http._tcp _ipp._tcp -o json
  netbridge mdns browse _osc._udp --filter 'kind == "resolved" && port == 9000'
  netbridge mdns browse _osc._udp --tui
  netbridge mdns browse _osc._udp --timeout 5s --summary`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := handler{em: host.NewEmitter("mdns")}
			if summary {
				h.seen = newServiceSet()
			}

			return cli.RunCommand(cli.CommandConfig{
				Name:       "mdns-browse",
				Viper:      v,
				Timeout:    timeout,
				LogToFile:  flags.UseTUI(),
				Extensions: []runtime.Extension{capability(h)},
				Run: func(ctx context.Context, rt *runtime.Runtime, out *cli.Output) error {
					a := discovery.From(rt)
					for _, st := range args {
						if s := a.Subscribe(st); s != discovery.StatusOK {
							return fmt.Errorf("browse %s: %s", st, s)
						}
					}

					interval := cli.ConfigFrom(rt).Host.PollInterval
					session := host.Session{Adapter: "mdns", Target: strings.Join(args, " ")}
					err := host.Run(ctx, &flags, out, h.em, session, func(ctx context.Context) error {
						return cli.Poll(ctx, interval, nil, func(context.Context) error {
							if s := a.ProcessEvents(0); s != discovery.StatusOK {
								return fmt.Errorf("process events: %s", s)
							}
							return nil
						})
					})
					if err != nil || h.seen == nil {
						return err
					}
					return h.seen.render(out, args)
				},
			})
		},
	}

	flags.Bind(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "stop browsing after this long (0 runs until interrupted)")
	cmd.Flags().BoolVar(&summary, "summary", false, "print a table of the resolved services when browsing stops")

	return cmd
}
