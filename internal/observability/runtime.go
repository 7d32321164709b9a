package observability

import "github.com/gezibash/netbridge/pkg/runtime"

const componentKey = "observability"

// Attach stores o on the runtime so adapters built by later extensions can
// find its metrics. Shutdown stays with the caller, since tracing must
// outlive the runtime's closers.
func Attach(o *Observability) runtime.Extension {
	return func(rt *runtime.Runtime) error {
		rt.Set(componentKey, o)
		return nil
	}
}

// From retrieves the observability stack from the runtime, or nil.
func From(rt *runtime.Runtime) *Observability {
	if rt == nil {
		return nil
	}
	o, _ := rt.Get(componentKey).(*Observability)
	return o
}

// MetricsFrom returns the runtime's metrics, or nil. Metrics methods accept
// a nil receiver.
func MetricsFrom(rt *runtime.Runtime) *Metrics {
	if o := From(rt); o != nil {
		return o.Metrics
	}
	return nil
}
