package pubsub

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	nberrors "github.com/gezibash/netbridge/pkg/errors"
)

// natsConn maps the pub/sub model onto core NATS. Topics use MQTT syntax
// and are translated to subjects ("a/+/#" becomes "a.*.>"). Core NATS
// delivers at most once and has no retained messages, so QoS and retain are
// accepted but not enforced.
type natsConn struct {
	opts  ConnOptions
	queue *eventQueue
	done  chan struct{}
	log   *slog.Logger

	mu   sync.Mutex
	nc   *nats.Conn
	subs map[string]*nats.Subscription
	// pending holds topics subscribed before the connection was up.
	pending map[string]struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// DialNATS starts connecting to the server in opts and returns at once. The
// outcome arrives as an EventConnAck (or EventError) through Events. Keep-
// alive round trips run every opts.KeepAlive and are reported as
// EventKeepAlive.
func DialNATS(opts ConnOptions, log *slog.Logger) (Connection, error) {
	opts.setDefaults()
	if log == nil {
		log = slog.Default()
	}
	if opts.URL == "" {
		if opts.Host == "" {
			return nil, fmt.Errorf("%w: nats url or host is required", nberrors.ErrInvalidInput)
		}
		port := opts.Port
		if port == DefaultPort {
			port = nats.DefaultPort
		}
		opts.URL = "nats://" + net.JoinHostPort(opts.Host, strconv.Itoa(port))
	}

	c := &natsConn{
		opts:    opts,
		queue:   newEventQueue(opts.QueueCapacity),
		done:    make(chan struct{}),
		log:     log,
		subs:    make(map[string]*nats.Subscription),
		pending: make(map[string]struct{}),
	}
	c.wg.Add(1)
	go c.connect()
	return c, nil
}

func (c *natsConn) natsOptions() []nats.Option {
	opts := []nats.Option{
		nats.Name(c.opts.ClientID),
		nats.PingInterval(c.opts.KeepAlive),
		nats.MaxPingsOutstanding(2),
		nats.Timeout(2 * c.opts.KeepAlive),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.queue.push(Event{Kind: EventError, Err: err})
			}
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			c.queue.push(Event{Kind: EventConnAck, Code: StatusOK})
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			c.log.Warn("nats async error", "subject", subject, "error", err)
		}),
	}
	if c.opts.hasCredentials() {
		opts = append(opts, nats.UserInfo(c.opts.User, c.opts.Password))
	}
	return opts
}

func (c *natsConn) connect() {
	defer c.wg.Done()

	nc, err := nats.Connect(c.opts.URL, c.natsOptions()...)
	if err != nil {
		if code, ok := natsRefusal(err); ok {
			c.queue.push(Event{Kind: EventConnAck, Code: code})
			return
		}
		if errors.Is(err, nats.ErrNoServers) {
			err = fmt.Errorf("%w: %w", syscall.ECONNREFUSED, err)
		}
		c.queue.push(Event{Kind: EventError, Err: err})
		return
	}

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		nc.Close()
		return
	default:
	}
	c.nc = nc
	for topic := range c.pending {
		if err := c.subscribeLocked(topic); err != nil {
			c.log.Warn("nats subscribe failed", "topic", topic, "error", err)
		}
	}
	clear(c.pending)
	c.mu.Unlock()

	c.queue.push(Event{Kind: EventConnAck, Code: StatusOK})
	c.keepAlive(nc)
}

// keepAlive performs a ping/pong round trip every KeepAlive interval.
func (c *natsConn) keepAlive(nc *nats.Conn) {
	ticker := time.NewTicker(c.opts.KeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}
		if !nc.IsConnected() {
			continue
		}
		if err := nc.FlushTimeout(c.opts.KeepAlive); err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				err = fmt.Errorf("%w: %v", ErrFlushTimeout, err)
			}
			c.queue.push(Event{Kind: EventError, Err: err})
			continue
		}
		c.queue.push(Event{Kind: EventKeepAlive})
	}
}

// natsRefusal maps errors that amount to the server refusing the client.
func natsRefusal(err error) (Status, bool) {
	switch {
	case errors.Is(err, nats.ErrAuthorization), errors.Is(err, nats.ErrAuthExpired):
		return StatusNotAuthorized, true
	}
	return StatusOK, false
}

func (c *natsConn) subscribeLocked(topic string) error {
	sub, err := c.nc.Subscribe(subjectFor(topic), func(msg *nats.Msg) {
		c.queue.push(Event{Kind: EventPublish, Topic: topicFor(msg.Subject), Payload: msg.Data})
	})
	if err != nil {
		return err
	}
	c.subs[topic] = sub
	return nil
}

func (c *natsConn) Subscribe(topic string, _ QoS) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queue.isClosed() {
		return nberrors.ErrClosed
	}
	if c.nc == nil {
		c.pending[topic] = struct{}{}
		return nil
	}
	if _, ok := c.subs[topic]; ok {
		return nil
	}
	return c.subscribeLocked(topic)
}

func (c *natsConn) Unsubscribe(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queue.isClosed() {
		return nberrors.ErrClosed
	}
	delete(c.pending, topic)
	sub, ok := c.subs[topic]
	if !ok {
		return nil
	}
	delete(c.subs, topic)
	return sub.Unsubscribe()
}

func (c *natsConn) Publish(topic string, payload []byte, _ QoS, retain bool) error {
	c.mu.Lock()
	nc := c.nc
	c.mu.Unlock()
	if c.queue.isClosed() {
		return nberrors.ErrClosed
	}
	if nc == nil {
		return nberrors.ErrNotConnected
	}
	if retain {
		c.log.Debug("nats has no retained messages; publishing without retain", "topic", topic)
	}
	// Publish only buffers; the client flushes in the background.
	return nc.Publish(subjectFor(topic), payload)
}

func (c *natsConn) Events() <-chan Event { return c.queue.events }

func (c *natsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.queue.close()
		c.mu.Lock()
		nc := c.nc
		c.mu.Unlock()
		if nc != nil {
			nc.Close()
		}
		c.wg.Wait()
	})
	return nil
}

// subjectFor translates an MQTT topic filter to a NATS subject.
func subjectFor(topic string) string {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	for i, p := range parts {
		switch p {
		case "+":
			parts[i] = "*"
		case "#":
			parts[i] = ">"
		}
	}
	return strings.Join(parts, ".")
}

// topicFor translates a concrete NATS subject back to a topic.
func topicFor(subject string) string {
	return strings.ReplaceAll(subject, ".", "/")
}
