package mqtt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/netbridge/cmd/netbridge/host"
	"github.com/gezibash/netbridge/internal/cli"
	"github.com/gezibash/netbridge/internal/pubsub"
	"github.com/gezibash/netbridge/pkg/runtime"
)

func newSubCmd(v *viper.Viper) *cobra.Command {
	var (
		flags    host.Flags
		qos      int
		timeout  time.Duration
		uniqueID bool
		list     bool
	)

	cmd := &cobra.Command{
		Use:   "sub <topic>...",
		Short: "Print messages published to topics",
		Long: `Subscribe to one or more topics and report every message received.

Topic filters use MQTT wildcards (+ and #) with either transport.

Examples:
  netbridge mqtt sub sensors/#
  netbridge mqtt sub alerts sensors/+/temp --qos 1 -o json
  netbridge mqtt sub sensors/# --filter 'topic.endsWith("/temp")'
  netbridge mqtt sub alerts sensors/# --list
  netbridge mqtt sub events.> --transport nats --nats-url nats://localhost:4222`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := pubsub.ParseQoS(qos)
			if err != nil {
				return err
			}

			h := &handler{em: host.NewEmitter("mqtt")}

			return cli.RunCommand(cli.CommandConfig{
				Name:       "mqtt-sub",
				Viper:      v,
				Timeout:    timeout,
				LogToFile:  flags.UseTUI(),
				Extensions: []runtime.Extension{capability(h, uniqueID)},
				Run: func(ctx context.Context, rt *runtime.Runtime, out *cli.Output) error {
					c := pubsub.From(rt)
					for _, topic := range args {
						if s := c.Subscribe(topic, q); s != pubsub.StatusOK {
							return fmt.Errorf("subscribe %s: %s", topic, s)
						}
					}

					if list && !flags.UseTUI() {
						if err := renderSubscriptions(out, c, target(rt)); err != nil {
							return err
						}
					}

					interval := cli.ConfigFrom(rt).Host.PollInterval
					session := host.Session{Adapter: "mqtt", Target: target(rt) + " " + strings.Join(args, " ")}
					return host.Run(ctx, &flags, out, h.em, session, func(ctx context.Context) error {
						return pollUntil(ctx, c, h, interval, func() bool { return false })
					})
				},
			})
		},
	}

	flags.Bind(cmd)
	cmd.Flags().IntVar(&qos, "qos", 0, "subscription QoS (0, 1, 2)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().BoolVar(&uniqueID, "unique-client-id", false, "append a random suffix to the client id")
	cmd.Flags().BoolVar(&list, "list", false, "print the active subscriptions before streaming messages")

	return cmd
}

// renderSubscriptions prints the client's subscription set, one row per
// topic filter.
func renderSubscriptions(out *cli.Output, c *pubsub.Client, target string) error {
	tbl := out.Table("mqtt-subscriptions", "Topic", "QoS").ForAdapter("mqtt")
	for _, topic := range c.Subscriptions() {
		q, _ := c.SubscribedQoS(topic)
		tbl.AddRow(topic, int(q))
	}
	return tbl.Caption("subscribed on %s", target).Render()
}

// pollUntil polls c until done reports true, ctx ends or the connection
// fails. A refused connection is an error. Poll itself waits up to interval
// for the next event.
func pollUntil(ctx context.Context, c *pubsub.Client, h *handler, interval time.Duration, done func() bool) error {
	for ctx.Err() == nil {
		if s := c.Poll(interval); s != pubsub.StatusOK {
			return fmt.Errorf("poll: %s", s)
		}
		if st, ok := h.connAck(); ok && st != pubsub.StatusOK {
			return fmt.Errorf("connection refused: %s", st)
		}
		if done() {
			return nil
		}
	}
	return nil
}
