// Package mqtt implements the mqtt commands. The same commands drive a NATS
// server when pubsub.transport is "nats".
package mqtt

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/netbridge/internal/cli"
	"github.com/gezibash/netbridge/internal/pubsub"
	"github.com/gezibash/netbridge/pkg/runtime"
)

// Entrypoint returns the mqtt command.
func Entrypoint(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mqtt",
		Short: "Publish and subscribe through an MQTT broker (or NATS)",
	}

	f := cmd.PersistentFlags()
	f.String("transport", "", "broker protocol (mqtt, nats)")
	f.String("broker", "", "broker host")
	f.Int("port", 0, "broker port")
	f.String("client-id", "", "client identifier")
	f.String("nats-url", "", "NATS server URL (overrides --broker and --port)")
	_ = v.BindPFlag("pubsub.transport", f.Lookup("transport"))
	_ = v.BindPFlag("pubsub.host", f.Lookup("broker"))
	_ = v.BindPFlag("pubsub.port", f.Lookup("port"))
	_ = v.BindPFlag("pubsub.client_id", f.Lookup("client-id"))
	_ = v.BindPFlag("pubsub.nats_url", f.Lookup("nats-url"))

	cmd.AddCommand(newSubCmd(v))
	cmd.AddCommand(newPubCmd(v))
	return cmd
}

// capability connects with the loaded configuration.
func capability(h pubsub.Handler, uniqueID bool) runtime.Extension {
	return func(rt *runtime.Runtime) error {
		p := cli.ConfigFrom(rt).PubSub
		return pubsub.Capability(p.Transport, pubsub.ConnOptions{
			Host:           p.Host,
			Port:           p.Port,
			ClientID:       p.ClientID,
			UniqueClientID: uniqueID,
			User:           p.User,
			Password:       p.Password,
			KeepAlive:      p.KeepAlive,
			QueueCapacity:  p.QueueCapacity,
			URL:            p.NATSURL,
		}, h)(rt)
	}
}

func target(rt *runtime.Runtime) string {
	p := cli.ConfigFrom(rt).PubSub
	if p.Transport == "nats" && p.NATSURL != "" {
		return p.NATSURL
	}
	return p.Transport + "://" + p.Host
}
