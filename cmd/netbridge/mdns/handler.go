package mdns

import (
	"github.com/gezibash/netbridge/cmd/netbridge/host"
	"github.com/gezibash/netbridge/internal/discovery"
)

type handler struct {
	em *host.Emitter
	// seen, when set, tracks resolved instances for a closing summary.
	seen *serviceSet
}

func (h handler) OnError(msg string) {
	h.em.Emit("error", "text", msg)
}

func (h handler) OnService(serviceType, fullname string, found bool) {
	kind := "removed"
	if found {
		kind = "found"
	} else if h.seen != nil {
		h.seen.removed(fullname)
	}
	h.em.Emit(kind, "service", serviceType, "name", fullname)
}

func (h handler) OnResolved(r discovery.ResolvedService) {
	if h.seen != nil {
		h.seen.resolved(r)
	}
	h.em.Emit("resolved",
		"service", r.ServiceType,
		"name", r.Fullname,
		"host", r.Hostname,
		"port", r.Port,
		"addrs", addrStrings(r),
		"txt", txtStrings(r),
	)
}
