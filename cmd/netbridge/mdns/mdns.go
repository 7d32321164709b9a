// Package mdns implements the mdns commands.
package mdns

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/netbridge/internal/cli"
	"github.com/gezibash/netbridge/internal/discovery"
	"github.com/gezibash/netbridge/pkg/runtime"
)

// Entrypoint returns the mdns command.
func Entrypoint(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mdns",
		Short: "Browse and publish services over multicast DNS",
	}
	cmd.AddCommand(newBrowseCmd(v))
	cmd.AddCommand(newRegisterCmd(v))
	return cmd
}

// capability starts discovery with the loaded configuration.
func capability(h discovery.Handler) runtime.Extension {
	return func(rt *runtime.Runtime) error {
		d := cli.ConfigFrom(rt).Discovery
		return discovery.Capability(discovery.Config{
			Retry: discovery.RetryPolicy{Attempts: d.RetryAttempts, Delay: d.RetryDelay},
			MDNS: discovery.MDNSOptions{
				Interval: d.BrowseInterval,
				Logger:   rt.Log().WithComponent("mdns").Slog(),
			},
			Interfaces: d.Interfaces,
		}, h)(rt)
	}
}
