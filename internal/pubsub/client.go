package pubsub

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/pkg/logging"
)

// Handler receives inbound events. Methods run on the goroutine that called
// Poll.
type Handler interface {
	// OnKeepAlive reports a keep-alive acknowledgement from the server.
	OnKeepAlive()
	OnPublish(topic string, payload []byte)
	// OnConnAck reports the outcome of a connection attempt; StatusOK on
	// success.
	OnConnAck(code Status)
}

// BaseHandler implements Handler with no-ops.
type BaseHandler struct{}

func (BaseHandler) OnKeepAlive()             {}
func (BaseHandler) OnPublish(string, []byte) {}
func (BaseHandler) OnConnAck(Status)         {}

// Options configures a Client.
type Options struct {
	Logger  *logging.Logger
	Metrics *observability.Metrics
}

// Client is the host-facing pub/sub client. A nil *Client answers every
// call with StatusInvalidClient.
type Client struct {
	conn    Connection
	h       Handler
	log     *logging.Logger
	metrics *observability.Metrics

	mu   sync.Mutex
	subs map[string]QoS
}

// New wraps an established connection.
func New(conn Connection, h Handler, opts Options) *Client {
	if h == nil {
		h = BaseHandler{}
	}
	log := opts.Logger
	if log == nil {
		log = logging.New(nil)
	}
	return &Client{
		conn:    conn,
		h:       h,
		log:     log.WithComponent("pubsub"),
		metrics: opts.Metrics,
		subs:    make(map[string]QoS),
	}
}

func validString(s string) bool {
	return s != "" && utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

func (c *Client) clientError(op string, err error) Status {
	c.metrics.Error("pubsub", op)
	c.log.Debug("pubsub request failed", "op", op, "error", err)
	return StatusClientError
}

// Subscribe adds topic to the subscription set. Subscribing to a topic that
// is already subscribed is a no-op.
func (c *Client) Subscribe(topic string, qos QoS) Status {
	if c == nil {
		return StatusInvalidClient
	}
	if !validString(topic) {
		return StatusInvalidString
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[topic]; ok {
		return StatusOK
	}
	if err := c.conn.Subscribe(topic, qos); err != nil {
		return c.clientError("subscribe", err)
	}
	c.subs[topic] = qos
	c.log.Debug("subscribed", "topic", topic, "qos", int(qos))
	return StatusOK
}

// Unsubscribe removes topic from the subscription set.
func (c *Client) Unsubscribe(topic string) Status {
	if c == nil {
		return StatusInvalidClient
	}
	if !validString(topic) {
		return StatusInvalidString
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.Unsubscribe(topic); err != nil {
		return c.clientError("unsubscribe", err)
	}
	delete(c.subs, topic)
	c.log.Debug("unsubscribed", "topic", topic)
	return StatusOK
}

// Subscriptions returns the subscribed topics in lexical order.
func (c *Client) Subscriptions() []string {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	topics := make([]string, 0, len(c.subs))
	for t := range c.subs {
		topics = append(topics, t)
	}
	slices.Sort(topics)
	return topics
}

// SubscribedQoS returns the QoS topic was subscribed with.
func (c *Client) SubscribedQoS(topic string) (QoS, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.subs[topic]
	return q, ok
}

// Publish sends a text message. Delivery is not confirmed.
func (c *Client) Publish(topic, msg string, qos QoS, retain bool) Status {
	if c == nil {
		return StatusInvalidClient
	}
	if !validString(topic) || !utf8.ValidString(msg) || strings.ContainsRune(msg, 0) {
		return StatusInvalidString
	}
	return c.publish(topic, []byte(msg), qos, retain)
}

// PublishData sends a binary message. Delivery is not confirmed.
func (c *Client) PublishData(topic string, data []byte, qos QoS, retain bool) Status {
	if c == nil {
		return StatusInvalidClient
	}
	if !validString(topic) || data == nil {
		return StatusInvalidString
	}
	return c.publish(topic, data, qos, retain)
}

func (c *Client) publish(topic string, payload []byte, qos QoS, retain bool) Status {
	if err := c.conn.Publish(topic, payload, qos, retain); err != nil {
		return c.clientError("publish", err)
	}
	c.metrics.Bytes("pubsub", "out", len(payload))
	return StatusOK
}

// Poll waits up to timeout for one inbound event and dispatches it. A
// timeout without an event is StatusOK. Connection failures are returned as
// their status.
func (c *Client) Poll(timeout time.Duration) Status {
	if c == nil {
		return StatusInvalidClient
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var ev Event
	select {
	case e, ok := <-c.conn.Events():
		if !ok {
			return StatusDisconnected
		}
		ev = e
	case <-timer.C:
		return StatusOK
	}

	c.metrics.Event("pubsub", ev.Kind.String())
	switch ev.Kind {
	case EventKeepAlive:
		c.h.OnKeepAlive()
	case EventPublish:
		c.metrics.Bytes("pubsub", "in", len(ev.Payload))
		c.h.OnPublish(ev.Topic, ev.Payload)
	case EventConnAck:
		if ev.Code == StatusOK {
			c.log.Info("connected")
		} else {
			c.log.Warn("connection refused", "code", ev.Code.String())
		}
		c.h.OnConnAck(ev.Code)
	case EventError:
		st := errorStatus(ev.Err)
		c.metrics.Error("pubsub", strings.ReplaceAll(st.String(), " ", "_"))
		c.log.Warn("connection error", "status", st.String(), "error", ev.Err)
		return st
	default:
		c.log.Debug("ignoring event", "kind", ev.Kind.String())
	}
	return StatusOK
}

// Close disconnects. Later calls on the Client fail with StatusClientError.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("close %T: %w", c.conn, err)
	}
	return nil
}
