package ws

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/netbridge/cmd/netbridge/host"
	"github.com/gezibash/netbridge/internal/cli"
	"github.com/gezibash/netbridge/internal/socket"
	"github.com/gezibash/netbridge/pkg/runtime"
)

const lineBuffer = 64

func newConnectCmd(v *viper.Viper) *cobra.Command {
	var (
		flags   host.Flags
		headers []string
		ping    time.Duration
		noStdin bool
	)

	cmd := &cobra.Command{
		Use:   "connect <url>",
		Short: "Stream frames from a websocket and send lines to it",
		Long: `Connect to a ws:// or wss:// endpoint and report every inbound frame.

Lines read from stdin (or typed into the --tui prompt) are sent as text
frames. The command ends when the server closes the connection.

Examples:
  netbridge ws connect ws://localhost:8080/feed
  netbridge ws connect wss://example.com/socket --trim both
  netbridge ws connect ws://localhost:8080 -H "Authorization=Bearer abc" --ping 15s
  echo '{"op":"subscribe"}' | netbridge ws connect ws://localhost:8080 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawURL := args[0]

			header, err := parseHeaders(headers)
			if err != nil {
				return err
			}

			lines := make(chan string, lineBuffer)
			h := &handler{em: host.NewEmitter("ws")}

			err = cli.RunCommand(cli.CommandConfig{
				Name:      "ws-connect",
				Viper:     v,
				LogToFile: flags.UseTUI(),
				Extensions: []runtime.Extension{
					socket.Capability(rawURL, h, socket.Options{Dial: socket.DialOptions{Header: header}}),
				},
				Run: func(ctx context.Context, rt *runtime.Runtime, out *cli.Output) error {
					conf := cli.ConfigFrom(rt)
					trim, err := socket.ParseTrim(conf.Socket.Trim)
					if err != nil {
						return err
					}

					session := host.Session{Adapter: "ws", Target: rawURL}
					if flags.UseTUI() {
						session.Input = func(line string) { offer(lines, line) }
					} else if !noStdin {
						go readLines(os.Stdin, lines)
					}

					c := socket.From(rt)
					lp := &loop{c: c, em: h.em, trim: trim, lines: lines, ping: ping}
					return host.Run(ctx, &flags, out, h.em, session, func(ctx context.Context) error {
						return cli.Poll(ctx, conf.Host.PollInterval, nil, lp.step)
					})
				},
			})
			if err != nil && h.lastError() != "" {
				return fmt.Errorf("%w: %s", err, h.lastError())
			}
			return err
		},
	}

	flags.Bind(cmd)
	cmd.Flags().String("trim", "", "strip whitespace from inbound text (none, start, end, both)")
	_ = v.BindPFlag("socket.trim", cmd.Flags().Lookup("trim"))
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "handshake header Name=value (repeatable)")
	cmd.Flags().DurationVar(&ping, "ping", 0, "send a ping at this interval (0 disables)")
	cmd.Flags().BoolVar(&noStdin, "no-stdin", false, "do not send lines read from stdin")

	return cmd
}

// loop is one websocket session as seen by the poll loop.
type loop struct {
	c     *socket.Client
	em    *host.Emitter
	trim  socket.Trim
	lines <-chan string

	ping     time.Duration
	lastPing time.Time
}

func (l *loop) step(context.Context) error {
	l.send()

	if l.ping > 0 && time.Since(l.lastPing) >= l.ping {
		l.lastPing = time.Now()
		if s := l.c.SendPing(nil); s != socket.StatusOK {
			l.em.Emit("error", "text", "ping: "+s.String())
		}
	}

	switch s := l.c.Read(l.trim); s {
	case socket.StatusOK, socket.StatusRunloopExit:
		return nil
	case socket.StatusConnectionClosed, socket.StatusCloseError:
		return cli.ErrDone
	default:
		return fmt.Errorf("read: %s", s)
	}
}

// send writes every queued line, flushing once at the end.
func (l *loop) send() {
	sent := false
	for {
		select {
		case line := <-l.lines:
			if s := l.c.SendText(line, false); s != socket.StatusOK {
				l.em.Emit("error", "text", "send: "+s.String())
				continue
			}
			l.em.Emit("sent", "text", line, "size", len(line))
			sent = true
		default:
			if sent {
				l.c.Flush()
			}
			return
		}
	}
}

// offer queues line, dropping it when the queue is full so the UI never
// blocks.
func offer(lines chan<- string, line string) {
	select {
	case lines <- line:
	default:
	}
}

func readLines(f *os.File, lines chan<- string) {
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines <- sc.Text()
	}
}

func parseHeaders(entries []string) (http.Header, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	h := make(http.Header, len(entries))
	for _, e := range entries {
		k, val, ok := strings.Cut(e, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid header %q: want Name=value", e)
		}
		h.Add(strings.TrimSpace(k), val)
	}
	return h, nil
}
