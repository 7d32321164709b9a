package discovery

import (
	"fmt"
	"net"
	"strings"

	nberrors "github.com/gezibash/netbridge/pkg/errors"
)

// ErrAgain marks a transient engine condition. Operations that fail with
// an error wrapping ErrAgain may succeed if retried shortly.
var ErrAgain = nberrors.ErrAgain

// Engine is the mDNS machinery behind an Adapter. Implementations must be
// safe for use from a single caller goroutine; event channels are fed from
// the engine's own goroutines.
type Engine interface {
	// Browse starts browsing serviceType and returns its event stream.
	Browse(serviceType string) (<-chan Event, error)
	StopBrowse(serviceType string) error
	Register(info ServiceInfo) error
	// Unregister withdraws a registration. The outcome arrives on the
	// returned channel.
	Unregister(fullname string) (<-chan UnregisterStatus, error)
	SetInterface(iface IfKind, enabled bool) error
	Shutdown() error
}

// UnregisterStatus is the engine's answer to an unregistration.
type UnregisterStatus int

const (
	UnregisterOK UnregisterStatus = iota
	UnregisterNotFound
)

// EventKind discriminates Event.
type EventKind int

const (
	EventSearchStarted EventKind = iota
	EventFound
	EventResolved
	EventRemoved
	EventSearchStopped
)

func (k EventKind) String() string {
	switch k {
	case EventSearchStarted:
		return "search_started"
	case EventFound:
		return "found"
	case EventResolved:
		return "resolved"
	case EventRemoved:
		return "removed"
	case EventSearchStopped:
		return "search_stopped"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one item of a browse stream. Resolved is set for EventResolved.
type Event struct {
	Kind        EventKind
	ServiceType string
	Fullname    string
	Resolved    *ResolvedService
}

// TXTProperty is one key/value TXT record entry.
type TXTProperty struct {
	Key   string
	Value string
}

// ServiceInfo is a registration as handed to the engine. ServiceType and
// Host are already normalized.
type ServiceInfo struct {
	ServiceType string
	Instance    string
	Host        string
	Port        uint16
	// IPs may be empty, in which case the engine picks local addresses.
	IPs []net.IP
	TXT []TXTProperty
}

// Fullname returns the fully-qualified instance name.
func (s ServiceInfo) Fullname() string { return s.Instance + "." + s.ServiceType }

// ResolvedService describes a discovered service instance.
type ResolvedService struct {
	ServiceType string
	Fullname    string
	Hostname    string
	Port        uint16
	// HostTTL applies to SRV and address records, OtherTTL to PTR and TXT.
	HostTTL   uint32
	OtherTTL  uint32
	Priority  uint16
	Weight    uint16
	Addresses []net.IP
	TXT       []TXTProperty
}

// IfSelector discriminates IfKind.
type IfSelector int

const (
	IfAll IfSelector = iota
	IfIPv4
	IfIPv6
	IfAddr
	IfName
)

// IfKind selects the network interfaces an engine uses.
type IfKind struct {
	Selector IfSelector
	Addr     net.IP
	Name     string
}

// ParseIfKind parses "all", "*", "ipv4", "ipv6", an IP address, or an
// interface name.
func ParseIfKind(s string) IfKind {
	switch strings.ToLower(s) {
	case "all", "*":
		return IfKind{Selector: IfAll}
	case "ipv4":
		return IfKind{Selector: IfIPv4}
	case "ipv6":
		return IfKind{Selector: IfIPv6}
	}
	if ip := net.ParseIP(s); ip != nil {
		return IfKind{Selector: IfAddr, Addr: ip}
	}
	return IfKind{Selector: IfName, Name: s}
}

func (k IfKind) String() string {
	switch k.Selector {
	case IfAll:
		return "all"
	case IfIPv4:
		return "ipv4"
	case IfIPv6:
		return "ipv6"
	case IfAddr:
		return k.Addr.String()
	default:
		return k.Name
	}
}
