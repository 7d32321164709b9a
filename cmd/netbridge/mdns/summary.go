package mdns

import (
	"slices"
	"strings"
	"sync"

	"github.com/gezibash/netbridge/internal/cli"
	"github.com/gezibash/netbridge/internal/discovery"
)

// serviceSet holds the instances that are resolved and not yet removed.
type serviceSet struct {
	mu       sync.Mutex
	services map[string]discovery.ResolvedService
}

func newServiceSet() *serviceSet {
	return &serviceSet{services: make(map[string]discovery.ResolvedService)}
}

func (s *serviceSet) resolved(r discovery.ResolvedService) {
	s.mu.Lock()
	s.services[r.Fullname] = r
	s.mu.Unlock()
}

func (s *serviceSet) removed(fullname string) {
	s.mu.Lock()
	delete(s.services, fullname)
	s.mu.Unlock()
}

// render writes the set as a table sorted by instance name.
func (s *serviceSet) render(out *cli.Output, types []string) error {
	s.mu.Lock()
	names := make([]string, 0, len(s.services))
	for name := range s.services {
		names = append(names, name)
	}
	slices.Sort(names)

	tbl := out.Table("mdns-services", "Name", "Host", "Port", "Addresses", "TXT").ForAdapter("mdns")
	for _, name := range names {
		r := s.services[name]
		tbl.AddRow(name, r.Hostname, r.Port, addrStrings(r), txtStrings(r))
	}
	s.mu.Unlock()

	noun := "services"
	if tbl.Len() == 1 {
		noun = "service"
	}
	tbl.Caption("%d %s resolved for %s", tbl.Len(), noun, strings.Join(types, " "))
	return tbl.Render()
}

func addrStrings(r discovery.ResolvedService) []string {
	addrs := make([]string, 0, len(r.Addresses))
	for _, ip := range r.Addresses {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

func txtStrings(r discovery.ResolvedService) []string {
	txt := make([]string, 0, len(r.TXT))
	for _, p := range r.TXT {
		txt = append(txt, p.Key+"="+p.Value)
	}
	return txt
}
