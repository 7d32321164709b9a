package socket

import (
	"errors"

	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/pkg/runtime"
)

const componentKey = "socket"

// Capability returns a runtime extension that connects to rawURL and
// delivers frames to h. Connection problems reach h.OnError first and then
// fail the extension. On shutdown the client performs the close handshake
// and releases the connection.
func Capability(rawURL string, h Handler, opts Options) runtime.Extension {
	return func(rt *runtime.Runtime) error {
		if opts.Logger == nil {
			opts.Logger = rt.Log()
		}
		if opts.Metrics == nil {
			opts.Metrics = observability.MetricsFrom(rt)
		}

		c := Connect(rt.Context(), rawURL, h, opts)
		if c == nil {
			return errors.New("websocket connection failed")
		}
		return Attach(c)(rt)
	}
}

// Attach stores a Client on the runtime and closes it on shutdown.
func Attach(c *Client) runtime.Extension {
	return func(rt *runtime.Runtime) error {
		rt.Set(componentKey, c)
		rt.OnClose(func() error {
			c.Close()
			return c.Free()
		})
		return nil
	}
}

// From retrieves the Client from the runtime.
// Returns nil if no socket was configured.
func From(rt *runtime.Runtime) *Client {
	c, _ := rt.Get(componentKey).(*Client)
	return c
}
