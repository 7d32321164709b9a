package discovery

import (
	"fmt"

	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/pkg/runtime"
)

const componentKey = "discovery"

// Config configures the discovery capability.
type Config struct {
	Retry RetryPolicy
	MDNS  MDNSOptions
	// Interfaces are applied in order with EnableInterface, e.g.
	// ["!ipv6", "eth0"].
	Interfaces []string
}

// Capability returns a runtime extension that starts an mDNS-backed
// Adapter delivering to h. The adapter logs and counts through the
// runtime and is closed with it.
func Capability(cfg Config, h Handler) runtime.Extension {
	return func(rt *runtime.Runtime) error {
		a := NewMDNS(h, Options{
			Retry:   cfg.Retry,
			Logger:  rt.Log(),
			Metrics: observability.MetricsFrom(rt),
		}, cfg.MDNS)

		for _, iface := range cfg.Interfaces {
			if st := a.EnableInterface(iface); st != StatusOK {
				_ = a.Close()
				return fmt.Errorf("discovery: interface %q: %s", iface, st)
			}
		}

		return Attach(a)(rt)
	}
}

// Attach stores an Adapter on the runtime and closes it on shutdown.
func Attach(a *Adapter) runtime.Extension {
	return func(rt *runtime.Runtime) error {
		rt.Set(componentKey, a)
		rt.OnClose(a.Close)
		return nil
	}
}

// From retrieves the Adapter from the runtime.
// Returns nil if discovery was not configured.
func From(rt *runtime.Runtime) *Adapter {
	a, _ := rt.Get(componentKey).(*Adapter)
	return a
}
