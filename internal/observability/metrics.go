package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus registry and the meters shared by every
// adapter.
type Metrics struct {
	Registry          *prometheus.Registry
	OperationDuration *prometheus.HistogramVec
	OperationTotal    *prometheus.CounterVec
	BytesProcessed    *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec

	// Requests counts host submissions by adapter and outcome
	// (accepted, queue_full, terminated).
	Requests *prometheus.CounterVec
	// Deliveries counts background-to-host messages by adapter and kind
	// (reply, error, info, debug, log, progress).
	Deliveries *prometheus.CounterVec
	// Dispatched counts messages handed to host callbacks during a drain.
	Dispatched *prometheus.CounterVec
	// Events counts protocol events surfaced by the polling adapters.
	Events *prometheus.CounterVec
}

// NewMetrics creates a custom Prometheus registry with the netbridge meters.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "netbridge_operation_duration_seconds",
			Help:    "Duration of operations in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		OperationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netbridge_operation_total",
			Help: "Total number of operations.",
		}, []string{"operation", "status"}),
		BytesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netbridge_bytes_processed_total",
			Help: "Total bytes processed.",
		}, []string{"adapter", "direction"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netbridge_errors_total",
			Help: "Total number of errors reported to hosts.",
		}, []string{"adapter", "type"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netbridge_bridge_requests_total",
			Help: "Requests submitted by hosts.",
		}, []string{"adapter", "result"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netbridge_bridge_deliveries_total",
			Help: "Messages delivered from background workers to hosts.",
		}, []string{"adapter", "kind"}),
		Dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netbridge_bridge_dispatched_total",
			Help: "Messages dispatched to host callbacks.",
		}, []string{"adapter"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netbridge_events_total",
			Help: "Protocol events processed by polling adapters.",
		}, []string{"adapter", "event"}),
	}

	reg.MustRegister(
		m.OperationDuration, m.OperationTotal, m.BytesProcessed, m.ErrorsTotal,
		m.Requests, m.Deliveries, m.Dispatched, m.Events,
	)
	return m
}

// The helpers below tolerate a nil *Metrics so adapters can run unmetered.

// Request records a host submission outcome.
func (m *Metrics) Request(adapter, result string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(adapter, result).Inc()
}

// Delivery records a background-to-host message.
func (m *Metrics) Delivery(adapter, kind string) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(adapter, kind).Inc()
}

// Dispatch records n messages handed to host callbacks.
func (m *Metrics) Dispatch(adapter string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Dispatched.WithLabelValues(adapter).Add(float64(n))
}

// Event records a protocol event.
func (m *Metrics) Event(adapter, event string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(adapter, event).Inc()
}

// Error records an error reported to a host.
func (m *Metrics) Error(adapter, typ string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(adapter, typ).Inc()
}

// Bytes records payload volume in a direction ("in" or "out").
func (m *Metrics) Bytes(adapter, direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesProcessed.WithLabelValues(adapter, direction).Add(float64(n))
}
