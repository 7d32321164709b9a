package socket

import "fmt"

// FrameType is the kind of a websocket message.
type FrameType int

const (
	FrameText FrameType = iota
	FrameBinary
	FramePing
	FramePong
	FrameClose
)

func (t FrameType) String() string {
	switch t {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	case FramePing:
		return "ping"
	case FramePong:
		return "pong"
	case FrameClose:
		return "close"
	default:
		return fmt.Sprintf("frame(%d)", int(t))
	}
}

// Frame is one received or outgoing websocket message.
type Frame struct {
	Type FrameType
	Data []byte
}

// Transport is a non-blocking websocket connection.
type Transport interface {
	// Next returns the next received frame. It never blocks: ErrWouldBlock
	// means nothing is queued. Terminal conditions are ErrConnectionClosed
	// (reported once), ErrAlreadyClosed, or a *TransportError.
	Next() (Frame, error)
	// Write queues a frame for sending; Flush sends everything queued.
	Write(Frame) error
	Flush() error
	// Close starts the close handshake. The peer's reply surfaces through
	// Next as ErrConnectionClosed.
	Close() error
	CanRead() bool
	CanWrite() bool
	// Release drops the connection without a handshake.
	Release() error
}
