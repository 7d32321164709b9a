package discovery

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/pkg/logging"
)

const (
	// CloseUnregisterTimeout bounds the wait for each registration that is
	// force-withdrawn by Close.
	CloseUnregisterTimeout = 10 * time.Millisecond
)

// Handler receives discovery callbacks. Methods run on the goroutine that
// called into the Adapter.
type Handler interface {
	OnError(msg string)
	// OnService reports a service instance appearing (found) or going away.
	OnService(serviceType, fullname string, found bool)
	OnResolved(ResolvedService)
}

// BaseHandler implements Handler with no-ops.
type BaseHandler struct{}

func (BaseHandler) OnError(string)                 {}
func (BaseHandler) OnService(string, string, bool) {}
func (BaseHandler) OnResolved(ResolvedService)     {}

// RetryPolicy bounds retries on ErrAgain. Attempts counts the first try, so
// the default of 2 means one retry.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy retries once after 10ms.
var DefaultRetryPolicy = RetryPolicy{Attempts: 2, Delay: 10 * time.Millisecond}

// Options configures an Adapter.
type Options struct {
	Retry   RetryPolicy
	Logger  *logging.Logger
	Metrics *observability.Metrics
}

// Registration describes a service to publish.
type Registration struct {
	// ServiceType such as "_osc._udp"; ".local." is appended as needed.
	ServiceType string
	// Instance name without the service type, e.g. "Studio A".
	Instance string
	// Host name for the address records; ".local." is appended as needed.
	Host string
	Port uint16
	// IPs to advertise. Empty means the engine detects local addresses.
	IPs []string
	TXT []TXTProperty
}

// Adapter is the host-facing discovery client.
type Adapter struct {
	engine  Engine
	handler Handler
	retry   RetryPolicy
	log     *logging.Logger
	metrics *observability.Metrics
	sleep   func(time.Duration)

	mu      sync.Mutex
	order   []string
	subs    map[string]<-chan Event
	records map[string]ServiceInfo
	closed  bool
}

// New creates an Adapter over engine. A nil handler discards callbacks.
func New(engine Engine, h Handler, opts Options) *Adapter {
	if h == nil {
		h = BaseHandler{}
	}
	if opts.Retry.Attempts < 1 {
		opts.Retry = DefaultRetryPolicy
	}
	log := opts.Logger
	if log == nil {
		log = logging.New(nil)
	}
	return &Adapter{
		engine:  engine,
		handler: h,
		retry:   opts.Retry,
		log:     log.WithComponent("discovery"),
		metrics: opts.Metrics,
		sleep:   time.Sleep,
		subs:    make(map[string]<-chan Event),
		records: make(map[string]ServiceInfo),
	}
}

func (a *Adapter) usable() bool {
	a.mu.Lock()
	ok := !a.closed && a.engine != nil
	a.mu.Unlock()
	if !ok {
		a.handler.OnError("service error")
	}
	return ok
}

func (a *Adapter) fail(typ, msg string) {
	a.metrics.Error("discovery", typ)
	a.log.Debug("discovery error", "type", typ, "message", msg)
	a.handler.OnError(msg)
}

// failOp reports a failed engine call. Running out of attempts on a
// transient condition is only counted and logged; the caller's status is
// the sole signal.
func (a *Adapter) failOp(typ, msg string, err error) {
	if errors.Is(err, ErrAgain) {
		a.metrics.Error("discovery", typ)
		a.log.Debug("engine still busy, giving up", "type", typ, "error", err)
		return
	}
	a.fail(typ, msg)
}

// retryAgain runs op up to the configured number of attempts while it fails
// with ErrAgain, sleeping between attempts when delay is set.
func (a *Adapter) retryAgain(delay time.Duration, op func() error) error {
	var err error
	for attempt := 1; attempt <= a.retry.Attempts; attempt++ {
		if err = op(); err == nil || !errors.Is(err, ErrAgain) {
			return err
		}
		if attempt < a.retry.Attempts && delay > 0 {
			a.sleep(delay)
		}
	}
	return err
}

// Subscribe starts browsing serviceType. Subscribing to a type that is
// already subscribed is a no-op.
func (a *Adapter) Subscribe(serviceType string) Status {
	if a == nil {
		return StatusNullService
	}
	if !a.usable() {
		return StatusServiceError
	}
	if !validString(serviceType) {
		a.fail("validation", "invalid service name")
		return StatusInvalidString
	}
	st := NormalizeLocal(serviceType)

	a.mu.Lock()
	_, exists := a.subs[st]
	a.mu.Unlock()
	if exists {
		return StatusOK
	}

	var events <-chan Event
	err := a.retryAgain(a.retry.Delay, func() error {
		var err error
		events, err = a.engine.Browse(st)
		return err
	})
	if err != nil {
		a.failOp("subscribe", fmt.Sprintf("subscribe error: %v", err), err)
		return StatusServiceError
	}

	a.mu.Lock()
	a.subs[st] = events
	a.order = append(a.order, st)
	a.mu.Unlock()
	a.log.Debug("subscribed", "service", st)
	return StatusOK
}

// Unsubscribe stops browsing serviceType. The subscription is dropped even
// when the engine reports a failure.
func (a *Adapter) Unsubscribe(serviceType string) Status {
	if a == nil {
		return StatusNullService
	}
	if !a.usable() {
		return StatusServiceError
	}
	if !validString(serviceType) {
		a.fail("validation", "invalid service name")
		return StatusInvalidString
	}
	st := NormalizeLocal(serviceType)

	err := a.retryAgain(a.retry.Delay, func() error { return a.engine.StopBrowse(st) })
	a.removeSub(st)
	if err != nil {
		a.failOp("unsubscribe", fmt.Sprintf("unsubscribe error: %v", err), err)
		return StatusServiceError
	}
	a.log.Debug("unsubscribed", "service", st)
	return StatusOK
}

func (a *Adapter) removeSub(st string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.subs, st)
	for i, s := range a.order {
		if s == st {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// Register publishes a service. Strings are validated before the engine is
// involved; TXT entries with invalid keys or values are skipped.
func (a *Adapter) Register(r Registration) Status {
	if a == nil {
		return StatusNullService
	}
	if !a.usable() {
		return StatusServiceError
	}
	if !validString(r.ServiceType) || !validString(r.Instance) || !validString(r.Host) {
		a.fail("validation", "invalid string")
		return StatusInvalidString
	}

	info := ServiceInfo{
		ServiceType: NormalizeLocal(r.ServiceType),
		Instance:    r.Instance,
		Host:        NormalizeLocal(r.Host),
		Port:        r.Port,
	}
	for _, s := range r.IPs {
		ip := net.ParseIP(s)
		if ip == nil {
			a.fail("register", fmt.Sprintf("invalid ip address: %q", s))
			return StatusServiceError
		}
		info.IPs = append(info.IPs, ip)
	}
	for _, p := range r.TXT {
		if !validString(p.Key) || !utf8Clean(p.Value) {
			a.log.Debug("skipping invalid txt property", "key", p.Key)
			continue
		}
		info.TXT = append(info.TXT, p)
	}

	err := a.retryAgain(a.retry.Delay, func() error { return a.engine.Register(info) })
	if err != nil {
		a.failOp("register", err.Error(), err)
		return StatusServiceError
	}

	fullname := info.Fullname()
	a.mu.Lock()
	a.records[fullname] = info
	a.mu.Unlock()
	a.log.Info("service registered", "name", fullname, "port", info.Port)
	return StatusOK
}

func utf8Clean(s string) bool {
	return s == "" || validString(s)
}

// Unregister withdraws the registration of instance under serviceType and
// waits up to timeout for the engine to confirm.
func (a *Adapter) Unregister(instance, serviceType string, timeout time.Duration) Status {
	if a == nil {
		return StatusNullService
	}
	if !a.usable() {
		return StatusServiceError
	}
	if !validString(instance) || !validString(serviceType) {
		a.fail("validation", "invalid string")
		return StatusInvalidString
	}

	fullname := FullName(instance, serviceType)
	st := a.unregister(fullname, timeout)
	if st == StatusOK {
		a.mu.Lock()
		delete(a.records, fullname)
		a.mu.Unlock()
		a.log.Info("service unregistered", "name", fullname)
	}
	return st
}

func (a *Adapter) unregister(fullname string, timeout time.Duration) Status {
	var statusCh <-chan UnregisterStatus
	err := a.retryAgain(0, func() error {
		var err error
		statusCh, err = a.engine.Unregister(fullname)
		return err
	})
	if err != nil {
		a.fail("unregister", fmt.Sprintf("unregister error: %v", err))
		return StatusServiceError
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case st, ok := <-statusCh:
		switch {
		case !ok:
			a.fail("unregister", fmt.Sprintf("unregister error: no status for %s", fullname))
			return StatusServiceError
		case st == UnregisterNotFound:
			a.fail("unregister", fmt.Sprintf("service not found: %s", fullname))
			return StatusServiceNotFound
		default:
			return StatusOK
		}
	case <-timer.C:
		a.fail("unregister", fmt.Sprintf("unregister timeout: %s", fullname))
		return StatusServiceError
	}
}

// ProcessEvents forwards engine events for every subscription until timeout
// elapses. Each subscription is drained of what is already queued, then
// waited on until the shared deadline.
func (a *Adapter) ProcessEvents(timeout time.Duration) Status {
	if a == nil {
		return StatusNullService
	}
	if !a.usable() {
		return StatusServiceError
	}
	deadline := time.Now().Add(timeout)

	a.mu.Lock()
	streams := make([]<-chan Event, 0, len(a.order))
	for _, st := range a.order {
		streams = append(streams, a.subs[st])
	}
	a.mu.Unlock()

	for _, events := range streams {
		for {
			ev, ok := nextEvent(events, deadline)
			if !ok {
				break
			}
			a.dispatch(ev)
		}
	}
	return StatusOK
}

func nextEvent(events <-chan Event, deadline time.Time) (Event, bool) {
	select {
	case ev, ok := <-events:
		return ev, ok
	default:
	}

	wait := time.Until(deadline)
	if wait <= 0 {
		return Event{}, false
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ev, ok := <-events:
		return ev, ok
	case <-timer.C:
		return Event{}, false
	}
}

func (a *Adapter) dispatch(ev Event) {
	switch ev.Kind {
	case EventFound:
		a.handler.OnService(ev.ServiceType, ev.Fullname, true)
	case EventRemoved:
		a.handler.OnService(ev.ServiceType, ev.Fullname, false)
	case EventResolved:
		if ev.Resolved == nil {
			return
		}
		a.handler.OnResolved(*ev.Resolved)
	default:
		return
	}
	a.metrics.Event("discovery", ev.Kind.String())
}

// EnableInterface enables or, with a "!" prefix, disables the interfaces
// matched by name. See ParseIfKind for the accepted selectors.
func (a *Adapter) EnableInterface(name string) Status {
	if a == nil {
		return StatusNullService
	}
	if !a.usable() {
		return StatusServiceError
	}
	if !validString(name) {
		a.fail("validation", "invalid interface name")
		return StatusInvalidString
	}

	enabled := true
	if name[0] == '!' {
		enabled = false
		name = name[1:]
	}
	kind := ParseIfKind(name)
	if err := a.engine.SetInterface(kind, enabled); err != nil {
		a.log.Debug("set interface failed", "iface", kind.String(), "enabled", enabled, "error", err)
		return StatusSetOptionError
	}
	return StatusOK
}

// Subscriptions returns the subscribed service types in subscription order.
func (a *Adapter) Subscriptions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.order...)
}

// Registrations returns the fully-qualified names of active registrations.
func (a *Adapter) Registrations() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.records))
	for name := range a.records {
		names = append(names, name)
	}
	return names
}

// Close force-withdraws every registration, waiting at most
// CloseUnregisterTimeout for each, then shuts the engine down. Later calls
// are no-ops.
func (a *Adapter) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	names := make([]string, 0, len(a.records))
	for name := range a.records {
		names = append(names, name)
	}
	a.mu.Unlock()

	for _, name := range names {
		a.unregister(name, CloseUnregisterTimeout)
		a.log.Info("service unregistered", "name", name)
	}

	a.mu.Lock()
	a.closed = true
	clear(a.records)
	clear(a.subs)
	a.order = nil
	a.mu.Unlock()

	if a.engine == nil {
		return nil
	}
	return a.engine.Shutdown()
}
