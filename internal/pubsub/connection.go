package pubsub

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	nberrors "github.com/gezibash/netbridge/pkg/errors"
)

const (
	DefaultClientID      = "netbridge_mqtt"
	DefaultPort          = 1883
	DefaultKeepAlive     = 5 * time.Second
	DefaultQueueCapacity = 10
)

// ConnOptions configures a transport connection.
type ConnOptions struct {
	Host     string
	Port     int
	ClientID string
	// UniqueClientID appends a random suffix to ClientID so several hosts
	// can share a configuration.
	UniqueClientID bool
	// Credentials are only used when both are set.
	User      string
	Password  string
	KeepAlive time.Duration
	// QueueCapacity bounds inbound events waiting for Poll.
	QueueCapacity int
	// URL overrides Host and Port for transports that take a server URL.
	URL string
}

func (o *ConnOptions) setDefaults() {
	if o.ClientID == "" {
		o.ClientID = DefaultClientID
	}
	if o.UniqueClientID {
		o.ClientID += "_" + uuid.NewString()[:8]
	}
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = DefaultKeepAlive
	}
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = DefaultQueueCapacity
	}
}

func (o ConnOptions) hasCredentials() bool {
	return o.User != "" && o.Password != ""
}

// EventKind discriminates Event.
type EventKind int

const (
	// EventKeepAlive acknowledges a keep-alive round trip.
	EventKeepAlive EventKind = iota
	EventPublish
	// EventConnAck carries the broker's answer to a connection attempt.
	EventConnAck
	// EventError reports a connection failure.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventKeepAlive:
		return "keep_alive"
	case EventPublish:
		return "publish"
	case EventConnAck:
		return "connack"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one inbound item from a Connection.
type Event struct {
	Kind    EventKind
	Topic   string
	Payload []byte
	// Code is set for EventConnAck.
	Code Status
	// Err is set for EventError.
	Err error
}

// Connection is a pub/sub transport. Subscribe, Unsubscribe and Publish
// must not block on the network.
type Connection interface {
	Subscribe(topic string, qos QoS) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte, qos QoS, retain bool) error
	// Events is closed when the connection is gone for good.
	Events() <-chan Event
	Close() error
}

// ErrTimeout marks network and flush timeouts in EventError.
var ErrTimeout = nberrors.ErrTimeout

// ErrFlushTimeout is reported when queued outbound data could not be
// written in time.
var ErrFlushTimeout = fmt.Errorf("flush %w", nberrors.ErrTimeout)

// errorStatus maps a connection failure onto the status enumeration.
func errorStatus(err error) Status {
	var netErr net.Error
	switch {
	case errors.Is(err, ErrFlushTimeout):
		return StatusFlushTimeout
	case errors.Is(err, ErrTimeout), errors.Is(err, os.ErrDeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return StatusNetworkTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return StatusConnectionRefused
	case errors.Is(err, syscall.ECONNRESET):
		return StatusConnectionReset
	case errors.Is(err, nberrors.ErrNotConnected), errors.Is(err, nberrors.ErrClosed):
		return StatusDisconnected
	default:
		return StatusConnectionError
	}
}

// eventQueue is the bounded inbound queue shared by the transports. Pushers
// block while it is full; close wakes them and then closes the channel.
type eventQueue struct {
	events chan Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newEventQueue(capacity int) *eventQueue {
	return &eventQueue{events: make(chan Event, capacity), done: make(chan struct{})}
}

func (q *eventQueue) push(ev Event) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.events <- ev:
	case <-q.done:
	}
}

func (q *eventQueue) isClosed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

func (q *eventQueue) close() {
	select {
	case <-q.done:
		return
	default:
		close(q.done)
	}
	q.mu.Lock()
	q.closed = true
	close(q.events)
	q.mu.Unlock()
}

// Dial opens a connection over the named transport, "mqtt" or "nats".
func Dial(transport string, opts ConnOptions, log *slog.Logger) (Connection, error) {
	switch transport {
	case "", "mqtt":
		return DialMQTT(opts, log)
	case "nats":
		return DialNATS(opts, log)
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", nberrors.ErrInvalidInput, transport)
	}
}
