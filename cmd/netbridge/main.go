package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/netbridge/cmd/netbridge/bot"
	"github.com/gezibash/netbridge/cmd/netbridge/mdns"
	"github.com/gezibash/netbridge/cmd/netbridge/mqtt"
	"github.com/gezibash/netbridge/cmd/netbridge/ws"
	"github.com/gezibash/netbridge/internal/cli"
	"github.com/gezibash/netbridge/internal/config"
)

func main() {
	v := viper.New()
	cli.Version = version

	rootCmd := &cobra.Command{
		Use:   "netbridge",
		Short: "Poll network services from one host loop",
		Long: `netbridge drives network adapters from a single polling loop:
DNS-SD over multicast DNS, websockets, MQTT or NATS pub/sub and
Telegram bots. Adapter events are printed as text, JSON or markdown,
or shown live with --tui.`,
		SilenceUsage: true,
	}

	config.BindCommonFlags(rootCmd, v)

	rootCmd.AddCommand(mdns.Entrypoint(v))
	rootCmd.AddCommand(ws.Entrypoint(v))
	rootCmd.AddCommand(mqtt.Entrypoint(v))
	rootCmd.AddCommand(bot.Entrypoint(v))
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
