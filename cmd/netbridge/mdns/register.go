package mdns

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/netbridge/cmd/netbridge/host"
	"github.com/gezibash/netbridge/internal/cli"
	"github.com/gezibash/netbridge/internal/discovery"
	"github.com/gezibash/netbridge/pkg/runtime"
)

func newRegisterCmd(v *viper.Viper) *cobra.Command {
	var (
		flags       host.Flags
		name        string
		serviceType string
		hostname    string
		port        uint16
		ips         []string
		txt         []string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Publish a service until interrupted",
		Long: `Publish a DNS-SD service instance and keep it announced until the
command is interrupted, then withdraw it.

Examples:
  netbridge mdns register --name "Studio A" --type _osc._udp --port 9000
  netbridge mdns register --name api --type _http._tcp --port 8080 \
      --host api-box --ip 192.168.1.20 --txt path=/v1 --txt tls=0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := parseTXT(txt)
			if err != nil {
				return err
			}
			if hostname == "" {
				hostname = defaultHost()
			}
			reg := discovery.Registration{
				ServiceType: serviceType,
				Instance:    name,
				Host:        hostname,
				Port:        port,
				IPs:         ips,
				TXT:         props,
			}

			em := host.NewEmitter("mdns")

			return cli.RunCommand(cli.CommandConfig{
				Name:       "mdns-register",
				Viper:      v,
				LogToFile:  flags.UseTUI(),
				Extensions: []runtime.Extension{capability(handler{em: em})},
				Run: func(ctx context.Context, rt *runtime.Runtime, out *cli.Output) error {
					a := discovery.From(rt)
					if s := a.Register(reg); s != discovery.StatusOK {
						return fmt.Errorf("register: %s", s)
					}

					fullname := discovery.FullName(name, serviceType)
					if !flags.UseTUI() {
						if err := out.Result("mdns-register", "registered").
							With("name", fullname).
							With("host", discovery.NormalizeLocal(hostname)).
							With("port", port).
							Render(); err != nil {
							return err
						}
					}

					conf := cli.ConfigFrom(rt)
					session := host.Session{Adapter: "mdns", Target: fullname}
					err := host.Run(ctx, &flags, out, em, session, func(ctx context.Context) error {
						return cli.Poll(ctx, conf.Host.PollInterval, nil, func(context.Context) error {
							a.ProcessEvents(0)
							return nil
						})
					})
					if err != nil {
						return err
					}

					if s := a.Unregister(name, serviceType, conf.Discovery.UnregisterTimeout); s != discovery.StatusOK {
						return fmt.Errorf("unregister: %s", s)
					}
					return nil
				},
			})
		},
	}

	flags.Bind(cmd)
	cmd.Flags().StringVar(&name, "name", "", "instance name")
	cmd.Flags().StringVar(&serviceType, "type", "", "service type, e.g. _osc._udp")
	cmd.Flags().StringVar(&hostname, "host", "", "host name for address records (default: this machine)")
	cmd.Flags().Uint16Var(&port, "port", 0, "service port")
	cmd.Flags().StringSliceVar(&ips, "ip", nil, "address to advertise (repeatable; default: local addresses)")
	cmd.Flags().StringArrayVar(&txt, "txt", nil, "TXT record entry key=value (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("port")

	return cmd
}

// parseTXT splits key=value entries. A bare key yields an empty value.
func parseTXT(entries []string) ([]discovery.TXTProperty, error) {
	props := make([]discovery.TXTProperty, 0, len(entries))
	for _, e := range entries {
		k, val, _ := strings.Cut(e, "=")
		if k == "" {
			return nil, fmt.Errorf("invalid txt entry %q: empty key", e)
		}
		props = append(props, discovery.TXTProperty{Key: k, Value: val})
	}
	return props, nil
}
