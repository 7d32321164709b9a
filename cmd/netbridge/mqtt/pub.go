package mqtt

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/netbridge/cmd/netbridge/host"
	"github.com/gezibash/netbridge/internal/cli"
	"github.com/gezibash/netbridge/internal/pubsub"
	"github.com/gezibash/netbridge/pkg/runtime"
)

func newPubCmd(v *viper.Viper) *cobra.Command {
	var (
		qos      int
		retain   bool
		timeout  time.Duration
		uniqueID bool
	)

	cmd := &cobra.Command{
		Use:   "pub <topic> <message>",
		Short: "Publish one message",
		Long: `Connect, wait for the broker to accept the connection and publish a
single message. Use "-" as the message to read it from stdin.

Examples:
  netbridge mqtt pub alerts "disk full"
  netbridge mqtt pub sensors/kitchen/temp 21.5 --qos 1 --retain
  cat payload.bin | netbridge mqtt pub firmware/blob -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := args[0]
			q, err := pubsub.ParseQoS(qos)
			if err != nil {
				return err
			}

			payload := []byte(args[1])
			if args[1] == "-" {
				payload, err = io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}

			h := &handler{em: host.NewEmitter("mqtt")}

			return cli.RunCommand(cli.CommandConfig{
				Name:       "mqtt-pub",
				Viper:      v,
				Timeout:    timeout,
				Extensions: []runtime.Extension{capability(h, uniqueID)},
				Run: func(ctx context.Context, rt *runtime.Runtime, out *cli.Output) error {
					c := pubsub.From(rt)
					interval := cli.ConfigFrom(rt).Host.PollInterval

					acked := func() bool { _, ok := h.connAck(); return ok }
					if err := pollUntil(ctx, c, h, interval, acked); err != nil {
						return err
					}
					if !acked() {
						return fmt.Errorf("no connection acknowledgement: %w", context.Cause(ctx))
					}

					if s := c.PublishData(topic, payload, q, retain); s != pubsub.StatusOK {
						return fmt.Errorf("publish: %s", s)
					}

					return out.Result("mqtt-publish", "published").
						With("topic", topic).
						With("bytes", len(payload)).
						With("qos", int(q)).
						With("retain", retain).
						Render()
				},
			})
		},
	}

	cmd.Flags().IntVar(&qos, "qos", 0, "publish QoS (0, 1, 2)")
	cmd.Flags().BoolVar(&retain, "retain", false, "ask the broker to retain the message")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "give up if the broker has not accepted the connection by then")
	cmd.Flags().BoolVar(&uniqueID, "unique-client-id", false, "append a random suffix to the client id")

	return cmd
}
