// Package discovery browses for and publishes DNS-SD services over
// multicast DNS.
//
// An Adapter is driven by a polling host: operations run synchronously on
// the caller's goroutine with a bounded retry on transient engine
// conditions, and ProcessEvents forwards whatever the engine has found to a
// Handler. The engine itself (MDNSEngine by default) does its network I/O on
// its own goroutines.
package discovery

import "fmt"

// Status is the outcome of an Adapter operation.
type Status int

const (
	StatusOK Status = iota
	// StatusNullService is returned by every method of a nil *Adapter.
	StatusNullService
	StatusServiceError
	StatusInvalidString
	StatusBrowseFailed
	StatusSetOptionError
	StatusServiceNotFound
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNullService:
		return "null service"
	case StatusServiceError:
		return "service error"
	case StatusInvalidString:
		return "invalid string"
	case StatusBrowseFailed:
		return "browse failed"
	case StatusSetOptionError:
		return "set option error"
	case StatusServiceNotFound:
		return "service not found"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}
