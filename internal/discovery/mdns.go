package discovery

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/mdns"

	nberrors "github.com/gezibash/netbridge/pkg/errors"
)

// hashicorp/mdns answers with fixed record parameters.
const (
	mdnsTTL      = 120
	mdnsPriority = 10
	mdnsWeight   = 1
)

// MDNSOptions tunes the hashicorp/mdns engine.
type MDNSOptions struct {
	// Interval between browse queries.
	Interval time.Duration
	// QueryTimeout bounds each query; keep it below Interval.
	QueryTimeout time.Duration
	// ExpireRounds is how many consecutive queries may miss an instance
	// before it is reported removed.
	ExpireRounds int
	// EventBuffer is the capacity of each browse stream. Events that do not
	// fit are dropped.
	EventBuffer int
	Logger      *slog.Logger
}

func (o *MDNSOptions) setDefaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.QueryTimeout <= 0 || o.QueryTimeout >= o.Interval {
		o.QueryTimeout = o.Interval / 2
	}
	if o.ExpireRounds <= 0 {
		o.ExpireRounds = 3
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 64
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// MDNSEngine implements Engine on top of github.com/hashicorp/mdns. The
// library has no browse daemon, so each browse runs periodic queries and
// derives found/resolved/removed events from the differences between rounds.
type MDNSEngine struct {
	opts MDNSOptions

	mu          sync.Mutex
	iface       *net.Interface
	disableIPv4 bool
	disableIPv6 bool
	browsers    map[string]*browser
	servers     map[string]*mdns.Server
	closed      bool
}

// NewMDNSEngine creates an idle engine.
func NewMDNSEngine(opts MDNSOptions) *MDNSEngine {
	opts.setDefaults()
	return &MDNSEngine{
		opts:     opts,
		browsers: make(map[string]*browser),
		servers:  make(map[string]*mdns.Server),
	}
}

// NewMDNS creates an Adapter backed by an MDNSEngine.
func NewMDNS(h Handler, opts Options, mopts MDNSOptions) *Adapter {
	if mopts.Logger == nil && opts.Logger != nil {
		mopts.Logger = opts.Logger.WithComponent("mdns").Slog()
	}
	return New(NewMDNSEngine(mopts), h, opts)
}

// transient maps socket-level "try again" failures to ErrAgain.
func transient(err error) error {
	if errors.Is(err, syscall.EAGAIN) {
		return fmt.Errorf("%w: %v", ErrAgain, err)
	}
	return err
}

func (e *MDNSEngine) Browse(serviceType string) (<-chan Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, nberrors.ErrClosed
	}
	if b, ok := e.browsers[serviceType]; ok {
		return b.events, nil
	}

	b := &browser{
		engine:      e,
		serviceType: serviceType,
		events:      make(chan Event, e.opts.EventBuffer),
		stop:        make(chan struct{}),
		seen:        make(map[string]*sighting),
	}
	e.browsers[serviceType] = b
	go b.run()
	return b.events, nil
}

func (e *MDNSEngine) StopBrowse(serviceType string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nberrors.ErrClosed
	}
	b, ok := e.browsers[serviceType]
	if !ok {
		return fmt.Errorf("%w: not browsing %s", nberrors.ErrNotFound, serviceType)
	}
	delete(e.browsers, serviceType)
	close(b.stop)
	return nil
}

func (e *MDNSEngine) Register(info ServiceInfo) error {
	service, domain := splitServiceType(info.ServiceType)

	ips := info.IPs
	if len(ips) == 0 {
		ips = localAddresses()
	}
	txt := make([]string, 0, len(info.TXT))
	for _, p := range info.TXT {
		txt = append(txt, p.Key+"="+p.Value)
	}

	zone, err := mdns.NewMDNSService(info.Instance, service, domain+".", info.Host, int(info.Port), ips, txt)
	if err != nil {
		return fmt.Errorf("service info: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nberrors.ErrClosed
	}

	srv, err := mdns.NewServer(&mdns.Config{Zone: zone, Iface: e.iface})
	if err != nil {
		return transient(fmt.Errorf("start responder: %w", err))
	}

	fullname := info.Fullname()
	if old, ok := e.servers[fullname]; ok {
		_ = old.Shutdown()
	}
	e.servers[fullname] = srv
	return nil
}

func (e *MDNSEngine) Unregister(fullname string) (<-chan UnregisterStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, nberrors.ErrClosed
	}

	status := make(chan UnregisterStatus, 1)
	srv, ok := e.servers[fullname]
	if !ok {
		status <- UnregisterNotFound
		return status, nil
	}
	delete(e.servers, fullname)

	go func() {
		if err := srv.Shutdown(); err != nil {
			e.opts.Logger.Debug("responder shutdown", "name", fullname, "error", err)
		}
		status <- UnregisterOK
	}()
	return status, nil
}

func (e *MDNSEngine) SetInterface(kind IfKind, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nberrors.ErrClosed
	}

	switch kind.Selector {
	case IfAll:
		e.disableIPv4, e.disableIPv6 = !enabled, !enabled
		if enabled {
			e.iface = nil
		}
	case IfIPv4:
		e.disableIPv4 = !enabled
	case IfIPv6:
		e.disableIPv6 = !enabled
	case IfName, IfAddr:
		iface, err := findInterface(kind)
		if err != nil {
			return err
		}
		switch {
		case enabled:
			e.iface = iface
		case e.iface != nil && e.iface.Name == iface.Name:
			e.iface = nil
		}
	default:
		return fmt.Errorf("%w: interface selector %d", nberrors.ErrInvalidInput, kind.Selector)
	}
	return nil
}

func (e *MDNSEngine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	for st, b := range e.browsers {
		close(b.stop)
		delete(e.browsers, st)
	}
	var errs []error
	for name, srv := range e.servers {
		if err := srv.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		delete(e.servers, name)
	}
	return errors.Join(errs...)
}

func (e *MDNSEngine) queryParams(serviceType string, entries chan<- *mdns.ServiceEntry) *mdns.QueryParam {
	e.mu.Lock()
	defer e.mu.Unlock()
	service, domain := splitServiceType(serviceType)
	return &mdns.QueryParam{
		Service:     service,
		Domain:      domain,
		Timeout:     e.opts.QueryTimeout,
		Interface:   e.iface,
		Entries:     entries,
		DisableIPv4: e.disableIPv4,
		DisableIPv6: e.disableIPv6,
	}
}

type sighting struct {
	resolved  ResolvedService
	lastRound int
}

type browser struct {
	engine      *MDNSEngine
	serviceType string
	events      chan Event
	stop        chan struct{}

	round int
	seen  map[string]*sighting
}

func (b *browser) run() {
	b.emit(Event{Kind: EventSearchStarted, ServiceType: b.serviceType})

	ticker := time.NewTicker(b.engine.opts.Interval)
	defer ticker.Stop()

	for {
		b.query()
		select {
		case <-b.stop:
			b.emit(Event{Kind: EventSearchStopped, ServiceType: b.serviceType})
			return
		case <-ticker.C:
		}
	}
}

func (b *browser) query() {
	b.round++
	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			b.observe(entry)
		}
	}()

	if err := mdns.Query(b.engine.queryParams(b.serviceType, entries)); err != nil {
		b.engine.opts.Logger.Debug("mdns query failed", "service", b.serviceType, "error", err)
	}
	close(entries)
	<-done

	b.expire()
}

func (b *browser) observe(entry *mdns.ServiceEntry) {
	if entry == nil {
		return
	}
	name := unescapeName(entry.Name)
	if !strings.HasSuffix(name, "."+b.serviceType) {
		return
	}

	resolved := resolvedFromEntry(b.serviceType, name, entry)
	prev, known := b.seen[name]
	b.seen[name] = &sighting{resolved: resolved, lastRound: b.round}

	if !known {
		b.emit(Event{Kind: EventFound, ServiceType: b.serviceType, Fullname: name})
		b.emit(Event{Kind: EventResolved, ServiceType: b.serviceType, Fullname: name, Resolved: &resolved})
		return
	}
	if !sameResolution(prev.resolved, resolved) {
		b.emit(Event{Kind: EventResolved, ServiceType: b.serviceType, Fullname: name, Resolved: &resolved})
	}
}

func (b *browser) expire() {
	for name, s := range b.seen {
		if b.round-s.lastRound >= b.engine.opts.ExpireRounds {
			delete(b.seen, name)
			b.emit(Event{Kind: EventRemoved, ServiceType: b.serviceType, Fullname: name})
		}
	}
}

func (b *browser) emit(ev Event) {
	select {
	case <-b.stop:
		return
	default:
	}
	select {
	case b.events <- ev:
	default:
		b.engine.opts.Logger.Debug("mdns event dropped", "service", b.serviceType, "event", ev.Kind.String())
	}
}

func resolvedFromEntry(serviceType, fullname string, entry *mdns.ServiceEntry) ResolvedService {
	r := ResolvedService{
		ServiceType: serviceType,
		Fullname:    fullname,
		Hostname:    entry.Host,
		Port:        uint16(entry.Port),
		HostTTL:     mdnsTTL,
		OtherTTL:    mdnsTTL,
		Priority:    mdnsPriority,
		Weight:      mdnsWeight,
	}
	if entry.AddrV4 != nil {
		r.Addresses = append(r.Addresses, entry.AddrV4)
	}
	if entry.AddrV6 != nil {
		r.Addresses = append(r.Addresses, entry.AddrV6)
	}
	for _, field := range entry.InfoFields {
		k, v, _ := strings.Cut(field, "=")
		if k == "" {
			continue
		}
		r.TXT = append(r.TXT, TXTProperty{Key: k, Value: v})
	}
	return r
}

func sameResolution(a, b ResolvedService) bool {
	return a.Hostname == b.Hostname &&
		a.Port == b.Port &&
		slices.EqualFunc(a.Addresses, b.Addresses, net.IP.Equal) &&
		slices.Equal(a.TXT, b.TXT)
}

// unescapeName undoes DNS label escaping of spaces and makes the name
// fully qualified.
func unescapeName(name string) string {
	name = strings.ReplaceAll(name, `\ `, " ")
	if !strings.HasSuffix(name, ".") {
		name += "."
	}
	return name
}

func findInterface(kind IfKind) (*net.Interface, error) {
	if kind.Selector == IfName {
		iface, err := net.InterfaceByName(kind.Name)
		if err != nil {
			return nil, fmt.Errorf("interface %q: %w", kind.Name, err)
		}
		return iface, nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipn, ok := addr.(*net.IPNet); ok && ipn.IP.Equal(kind.Addr) {
				return &ifaces[i], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no interface with address %s", nberrors.ErrNotFound, kind.Addr)
}

// localAddresses returns the addresses of up, non-loopback interfaces,
// falling back to loopback when nothing else is configured.
func localAddresses() []net.IP {
	var ips, loopback []net.IP
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipn, ok := addr.(*net.IPNet)
			if !ok || ipn.IP.IsLinkLocalUnicast() {
				continue
			}
			if ipn.IP.IsLoopback() {
				loopback = append(loopback, ipn.IP)
				continue
			}
			ips = append(ips, ipn.IP)
		}
	}
	if len(ips) == 0 {
		return loopback
	}
	return ips
}
