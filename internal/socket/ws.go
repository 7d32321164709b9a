package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultInboundBuffer bounds frames read ahead of the host.
	DefaultInboundBuffer = 256
	// DefaultHandshakeTimeout bounds the opening handshake.
	DefaultHandshakeTimeout = 45 * time.Second

	controlWriteTimeout = time.Second
)

// DialOptions configures Dial.
type DialOptions struct {
	Header           http.Header
	HandshakeTimeout time.Duration
	InboundBuffer    int
	// ReadLimit caps inbound message size in bytes; 0 means unlimited.
	ReadLimit int64
}

// wsTransport adapts a gorilla connection to Transport. A reader pump owns
// all reads; frames reach the caller through a bounded channel, so the pump
// stalls when the host stops reading.
type wsTransport struct {
	conn    *websocket.Conn
	inbound chan Frame
	done    chan struct{}

	releaseOnce sync.Once

	mu       sync.Mutex
	pending  []Frame
	closing  bool
	readErr  error
	reported bool
}

// Dial connects to a ws:// or wss:// URL and starts the reader pump.
func Dial(ctx context.Context, rawURL string, opts DialOptions) (Transport, error) {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.InboundBuffer <= 0 {
		opts.InboundBuffer = DefaultInboundBuffer
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.HandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, rawURL, opts.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, classify(err)
	}
	if opts.ReadLimit > 0 {
		conn.SetReadLimit(opts.ReadLimit)
	}
	return newWSTransport(conn, opts.InboundBuffer), nil
}

func newWSTransport(conn *websocket.Conn, buffer int) *wsTransport {
	t := &wsTransport{
		conn:    conn,
		inbound: make(chan Frame, buffer),
		done:    make(chan struct{}),
	}

	// Control frames are surfaced to the host, which answers pings itself.
	conn.SetPingHandler(func(data string) error {
		t.push(Frame{Type: FramePing, Data: []byte(data)})
		return nil
	})
	conn.SetPongHandler(func(data string) error {
		t.push(Frame{Type: FramePong, Data: []byte(data)})
		return nil
	})
	conn.SetCloseHandler(func(code int, text string) error {
		t.push(Frame{Type: FrameClose, Data: []byte(text)})
		t.mu.Lock()
		replied := t.closing
		t.closing = true
		t.mu.Unlock()
		if !replied {
			msg := websocket.FormatCloseMessage(code, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(controlWriteTimeout))
		}
		return nil
	})

	go t.pump()
	return t
}

func (t *wsTransport) push(f Frame) {
	select {
	case t.inbound <- f:
	case <-t.done:
	}
}

func (t *wsTransport) pump() {
	defer close(t.inbound)
	defer t.conn.Close()

	for {
		typ, data, err := t.conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			t.readErr = classify(err)
			t.mu.Unlock()
			return
		}
		switch typ {
		case websocket.TextMessage:
			t.push(Frame{Type: FrameText, Data: data})
		case websocket.BinaryMessage:
			t.push(Frame{Type: FrameBinary, Data: data})
		}
	}
}

func (t *wsTransport) Next() (Frame, error) {
	select {
	case f, ok := <-t.inbound:
		if ok {
			return f, nil
		}
	default:
		return Frame{}, ErrWouldBlock
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reported {
		return Frame{}, ErrAlreadyClosed
	}
	t.reported = true
	t.closing = true
	if t.readErr == nil {
		return Frame{}, ErrConnectionClosed
	}
	return Frame{}, t.readErr
}

func (t *wsTransport) Write(f Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closing {
		return ErrAlreadyClosed
	}
	t.pending = append(t.pending, f)
	return nil
}

func (t *wsTransport) Flush() error {
	t.mu.Lock()
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	for _, f := range pending {
		if err := t.send(f); err != nil {
			return classify(err)
		}
	}
	return nil
}

func (t *wsTransport) send(f Frame) error {
	deadline := time.Now().Add(controlWriteTimeout)
	switch f.Type {
	case FrameText:
		return t.conn.WriteMessage(websocket.TextMessage, f.Data)
	case FrameBinary:
		return t.conn.WriteMessage(websocket.BinaryMessage, f.Data)
	case FramePing:
		return t.conn.WriteControl(websocket.PingMessage, f.Data, deadline)
	case FramePong:
		return t.conn.WriteControl(websocket.PongMessage, f.Data, deadline)
	case FrameClose:
		return t.conn.WriteControl(websocket.CloseMessage, f.Data, deadline)
	default:
		return fmt.Errorf("unsupported frame type %s", f.Type)
	}
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	if t.closing {
		t.mu.Unlock()
		return ErrAlreadyClosed
	}
	pending := t.pending
	t.pending = nil
	t.closing = true
	t.mu.Unlock()

	var errs []error
	for _, f := range pending {
		if err := t.send(f); err != nil {
			errs = append(errs, classify(err))
			break
		}
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := t.send(Frame{Type: FrameClose, Data: msg}); err != nil {
		errs = append(errs, classify(err))
	}
	return errors.Join(errs...)
}

func (t *wsTransport) CanRead() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.reported
}

func (t *wsTransport) CanWrite() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closing
}

func (t *wsTransport) Release() error {
	t.releaseOnce.Do(func() { close(t.done) })
	err := t.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
