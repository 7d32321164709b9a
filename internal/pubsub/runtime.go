package pubsub

import (
	"fmt"

	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/pkg/runtime"
)

const componentKey = "pubsub"

// Capability returns a runtime extension that dials the named transport
// ("mqtt" or "nats") and wraps the connection in a Client delivering to h.
func Capability(transport string, conn ConnOptions, h Handler) runtime.Extension {
	if transport == "" {
		transport = "mqtt"
	}
	return func(rt *runtime.Runtime) error {
		log := rt.Log()
		log.Info("connecting", "component", "pubsub", "transport", transport, "host", conn.Host, "port", conn.Port)

		c, err := Dial(transport, conn, log.WithComponent(transport).Slog())
		if err != nil {
			return fmt.Errorf("pubsub: %w", err)
		}
		return Attach(New(c, h, Options{
			Logger:  log,
			Metrics: observability.MetricsFrom(rt),
		}))(rt)
	}
}

// Attach stores a Client on the runtime and closes it on shutdown.
func Attach(c *Client) runtime.Extension {
	return func(rt *runtime.Runtime) error {
		rt.Set(componentKey, c)
		rt.OnClose(c.Close)
		return nil
	}
}

// From retrieves the Client from the runtime.
// Returns nil if pub/sub was not configured.
func From(rt *runtime.Runtime) *Client {
	c, _ := rt.Get(componentKey).(*Client)
	return c
}
