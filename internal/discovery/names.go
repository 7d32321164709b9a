package discovery

import (
	"strings"
	"unicode/utf8"
)

const localDomain = "local."

// NormalizeLocal makes name end with ".local.":
//
//	x.local.  -> x.local.
//	x.local   -> x.local.
//	x.        -> x.local.
//	x         -> x.local.
//
// It is idempotent.
func NormalizeLocal(name string) string {
	switch {
	case strings.HasSuffix(name, "."+localDomain):
		return name
	case strings.HasSuffix(name, ".local"):
		return name + "."
	case strings.HasSuffix(name, "."):
		return name + localDomain
	default:
		return name + "." + localDomain
	}
}

// FullName joins an instance name and a service type into the
// fully-qualified instance name, e.g. "studio._osc._udp.local.".
func FullName(instance, serviceType string) string {
	return instance + "." + NormalizeLocal(serviceType)
}

// validString reports whether s can be passed to the engine: non-empty,
// valid UTF-8 and free of NUL bytes.
func validString(s string) bool {
	return s != "" && utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

// splitServiceType splits a normalized service type into the service part
// and its domain: "_osc._udp.local." -> ("_osc._udp", "local").
func splitServiceType(serviceType string) (service, domain string) {
	trimmed := strings.TrimSuffix(serviceType, ".")
	i := strings.LastIndexByte(trimmed, '.')
	if i < 0 {
		return trimmed, strings.TrimSuffix(localDomain, ".")
	}
	return trimmed[:i], trimmed[i+1:]
}
