// Package socket is a polled websocket client. The connection is read by a
// background pump so Read never blocks: it processes every frame that has
// already arrived and returns StatusRunloopExit when nothing more is queued.
package socket

import "fmt"

// Status is the outcome of a Client operation.
type Status int

const (
	StatusOK Status = iota
	StatusInvalidClient
	StatusInvalidServer
	StatusInvalidMessage
	StatusInvalidData
	StatusSendError
	StatusNoData
	StatusCloseError
	StatusConnectionClosed
	StatusNonBlockingError
	StatusSocketAcceptError
	StatusSocketReadError
	StatusSocketDeferClose
	// StatusRunloopExit means no more frames are queued right now. It is
	// the normal outcome of Read, not a failure.
	StatusRunloopExit
)

var statusNames = [...]string{
	StatusOK:                "ok",
	StatusInvalidClient:     "invalid client",
	StatusInvalidServer:     "invalid server",
	StatusInvalidMessage:    "invalid message",
	StatusInvalidData:       "invalid data",
	StatusSendError:         "send error",
	StatusNoData:            "no data",
	StatusCloseError:        "close error",
	StatusConnectionClosed:  "connection closed",
	StatusNonBlockingError:  "non-blocking error",
	StatusSocketAcceptError: "socket accept error",
	StatusSocketReadError:   "socket read error",
	StatusSocketDeferClose:  "socket defer close",
	StatusRunloopExit:       "runloop exit",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Trim selects how whitespace is stripped from inbound text frames.
type Trim int

const (
	TrimNone Trim = iota
	TrimStart
	TrimEnd
	TrimBoth
)

// ParseTrim accepts none, start, end and both.
func ParseTrim(s string) (Trim, error) {
	switch s {
	case "", "none":
		return TrimNone, nil
	case "start":
		return TrimStart, nil
	case "end":
		return TrimEnd, nil
	case "both":
		return TrimBoth, nil
	}
	return TrimNone, fmt.Errorf("unknown trim mode %q", s)
}

func (t Trim) String() string {
	switch t {
	case TrimStart:
		return "start"
	case TrimEnd:
		return "end"
	case TrimBoth:
		return "both"
	default:
		return "none"
	}
}
