package socket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/pkg/logging"
)

// Handler receives inbound frames and errors. Methods run on the goroutine
// that called into the Client.
type Handler interface {
	OnError(msg string)
	OnText(text string)
	OnBinary(data []byte)
	OnPing(data []byte)
	OnPong(data []byte)
	OnClose()
}

// BaseHandler implements Handler with no-ops.
type BaseHandler struct{}

func (BaseHandler) OnError(string)  {}
func (BaseHandler) OnText(string)   {}
func (BaseHandler) OnBinary([]byte) {}
func (BaseHandler) OnPing([]byte)   {}
func (BaseHandler) OnPong([]byte)   {}
func (BaseHandler) OnClose()        {}

// Options configures a Client.
type Options struct {
	Dial    DialOptions
	Logger  *logging.Logger
	Metrics *observability.Metrics
}

// Client is the host-facing websocket client.
type Client struct {
	t       Transport
	h       Handler
	log     *logging.Logger
	metrics *observability.Metrics
}

// Connect dials rawURL. Failures are reported through h.OnError and yield a
// nil Client, whose methods all return StatusInvalidClient.
func Connect(ctx context.Context, rawURL string, h Handler, opts Options) *Client {
	if h == nil {
		h = BaseHandler{}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		h.OnError(fmt.Sprintf("invalid URL: %v", err))
		return nil
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		h.OnError(fmt.Sprintf("invalid URL: unsupported scheme %q", u.Scheme))
		return nil
	}

	t, err := Dial(ctx, u.String(), opts.Dial)
	if err != nil {
		opts.Metrics.Error("socket", "connect")
		h.OnError(fmt.Sprintf("websocket connection error: %v", err))
		return nil
	}
	c := NewClient(t, h, opts)
	c.log.Info("connected", "url", u.Redacted())
	return c
}

// NewClient wraps an established transport.
func NewClient(t Transport, h Handler, opts Options) *Client {
	if h == nil {
		h = BaseHandler{}
	}
	log := opts.Logger
	if log == nil {
		log = logging.New(nil)
	}
	return &Client{t: t, h: h, log: log.WithComponent("socket"), metrics: opts.Metrics}
}

func (c *Client) fail(st Status, msg string) Status {
	c.metrics.Error("socket", strings.ReplaceAll(st.String(), " ", "_"))
	c.log.Debug("socket error", "status", st.String(), "message", msg)
	c.h.OnError(msg)
	return st
}

// Read processes every queued frame and returns StatusRunloopExit once
// nothing more is available. Pings are answered with a pong carrying the
// same payload. A completed close handshake calls OnClose and returns
// StatusConnectionClosed.
func (c *Client) Read(trim Trim) Status {
	if c == nil {
		return StatusInvalidClient
	}
	if !c.t.CanRead() {
		return StatusCloseError
	}

	for {
		f, err := c.t.Next()
		if err != nil {
			return c.readFailed(err)
		}
		c.metrics.Bytes("socket", "in", len(f.Data))

		switch f.Type {
		case FrameText:
			c.h.OnText(trimText(string(f.Data), trim))
		case FrameBinary:
			c.h.OnBinary(f.Data)
		case FramePing:
			c.h.OnPing(f.Data)
			if err := c.pong(f.Data); err != nil {
				c.log.Debug("pong failed", "error", err)
			}
		case FramePong:
			c.h.OnPong(f.Data)
		}
	}
}

func (c *Client) pong(data []byte) error {
	if err := c.t.Write(Frame{Type: FramePong, Data: data}); err != nil {
		return err
	}
	return c.t.Flush()
}

func (c *Client) readFailed(err error) Status {
	var te *TransportError
	switch {
	case errors.Is(err, ErrWouldBlock):
		return StatusRunloopExit
	case errors.Is(err, ErrConnectionClosed):
		c.log.Info("connection closed")
		c.h.OnClose()
		return StatusConnectionClosed
	case errors.Is(err, ErrAlreadyClosed):
		return c.fail(StatusNoData, "already closed")
	case errors.As(err, &te):
		return c.fail(StatusNoData, te.Error())
	default:
		return c.fail(StatusNoData, fmt.Sprintf("error: %v", err))
	}
}

func trimText(s string, trim Trim) string {
	switch trim {
	case TrimStart:
		return strings.TrimLeftFunc(s, unicode.IsSpace)
	case TrimEnd:
		return strings.TrimRightFunc(s, unicode.IsSpace)
	case TrimBoth:
		return strings.TrimSpace(s)
	default:
		return s
	}
}

// SendText sends a text frame. With flush unset the frame is only queued
// until the next Flush or flushed send.
func (c *Client) SendText(text string, flush bool) Status {
	if c == nil {
		return StatusInvalidClient
	}
	if !utf8.ValidString(text) {
		return c.fail(StatusInvalidMessage, "invalid message")
	}
	return c.send(Frame{Type: FrameText, Data: []byte(text)}, flush)
}

// SendBinary sends a binary frame. Empty payloads are rejected.
func (c *Client) SendBinary(data []byte, flush bool) Status {
	if c == nil {
		return StatusInvalidClient
	}
	if len(data) == 0 {
		return c.fail(StatusInvalidData, "invalid data")
	}
	return c.send(Frame{Type: FrameBinary, Data: data}, flush)
}

// SendPing sends a ping immediately. data may be empty.
func (c *Client) SendPing(data []byte) Status {
	if c == nil {
		return StatusInvalidClient
	}
	return c.send(Frame{Type: FramePing, Data: data}, true)
}

func (c *Client) send(f Frame, flush bool) Status {
	if !c.t.CanWrite() {
		return c.fail(StatusCloseError, "connection closed")
	}
	if err := c.t.Write(f); err != nil {
		return c.fail(StatusSendError, fmt.Sprintf("write error: %v", err))
	}
	c.metrics.Bytes("socket", "out", len(f.Data))
	if !flush {
		return StatusOK
	}
	if err := c.t.Flush(); err != nil {
		return c.fail(StatusSendError, fmt.Sprintf("send error: %v", err))
	}
	return StatusOK
}

// Flush sends every queued frame.
func (c *Client) Flush() Status {
	if c == nil {
		return StatusInvalidClient
	}
	if !c.t.CanWrite() {
		return c.fail(StatusCloseError, "connection closed")
	}
	if err := c.t.Flush(); err != nil {
		return c.fail(StatusSendError, fmt.Sprintf("flush error: %v", err))
	}
	return StatusOK
}

// Close starts the close handshake. Sends after Close fail with
// StatusCloseError without touching the network; keep calling Read to
// observe the peer's reply.
func (c *Client) Close() Status {
	if c == nil {
		return StatusInvalidClient
	}
	if !c.t.CanWrite() {
		return c.fail(StatusCloseError, "connection already closed")
	}
	if err := c.t.Close(); err != nil {
		return c.fail(StatusCloseError, fmt.Sprintf("close error: %v", err))
	}
	return StatusOK
}

// Free releases the connection. It does not perform the close handshake;
// call Close first for a clean shutdown.
func (c *Client) Free() error {
	if c == nil {
		return nil
	}
	return c.t.Release()
}
