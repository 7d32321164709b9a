// Package ws implements the ws commands.
package ws

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Entrypoint returns the ws command.
func Entrypoint(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ws",
		Short: "Talk to websocket servers",
	}
	cmd.AddCommand(newConnectCmd(v))
	return cmd
}
