package pubsub

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"

	nberrors "github.com/gezibash/netbridge/pkg/errors"
)

const mqttDisconnectQuiesce = 250 // milliseconds

// mqttConn adapts a paho client. Paho runs its own network goroutines; its
// callbacks feed the bounded event queue and block while it is full, so a
// host that stops polling applies backpressure to the broker connection.
type mqttConn struct {
	client mqtt.Client
	queue  *eventQueue
	done   chan struct{}
	log    *slog.Logger

	mu        sync.Mutex
	subs      map[string]QoS
	connected bool

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// DialMQTT starts connecting to the broker in opts and returns at once. The
// broker's answer arrives as an EventConnAck through Events.
func DialMQTT(opts ConnOptions, log *slog.Logger) (Connection, error) {
	opts.setDefaults()
	if log == nil {
		log = slog.Default()
	}
	if opts.Host == "" && opts.URL == "" {
		return nil, fmt.Errorf("%w: mqtt host is required", nberrors.ErrInvalidInput)
	}

	c := &mqttConn{
		queue: newEventQueue(opts.QueueCapacity),
		done:  make(chan struct{}),
		log:   log,
		subs:  make(map[string]QoS),
	}
	c.client = mqtt.NewClient(c.clientOptions(opts))

	token := c.client.Connect()
	c.wg.Add(1)
	go c.awaitConnect(token)
	return c, nil
}

func (c *mqttConn) clientOptions(opts ConnOptions) *mqtt.ClientOptions {
	broker := opts.URL
	if broker == "" {
		broker = "tcp://" + net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	}

	o := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(opts.ClientID).
		SetKeepAlive(opts.KeepAlive).
		SetPingTimeout(opts.KeepAlive).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetAutoReconnect(true).
		SetConnectRetry(false)
	if opts.hasCredentials() {
		o.SetUsername(opts.User).SetPassword(opts.Password)
	}

	o.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		c.push(Event{Kind: EventPublish, Topic: msg.Topic(), Payload: msg.Payload()})
	})
	o.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.push(Event{Kind: EventError, Err: err})
	})
	o.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		c.log.Debug("mqtt reconnecting", "broker", broker)
	})
	o.SetOnConnectHandler(func(client mqtt.Client) {
		// Sessions are clean, so every (re)connect restores the
		// subscription set. Reconnects are acknowledged like the first
		// connection, which awaitConnect reports.
		c.mu.Lock()
		for topic, qos := range c.subs {
			client.Subscribe(topic, byte(qos), nil)
		}
		reconnect := c.connected
		c.connected = true
		c.mu.Unlock()
		if reconnect {
			c.push(Event{Kind: EventConnAck, Code: StatusOK})
		}
	})
	return o
}

func (c *mqttConn) awaitConnect(token mqtt.Token) {
	defer c.wg.Done()
	select {
	case <-token.Done():
	case <-c.done:
		return
	}

	if ct, ok := token.(*mqtt.ConnectToken); ok {
		if code, refused := connackStatus(ct.ReturnCode()); refused || code == StatusOK {
			c.push(Event{Kind: EventConnAck, Code: code})
			return
		}
	}
	if err := token.Error(); err != nil {
		c.push(Event{Kind: EventError, Err: err})
		return
	}
	c.push(Event{Kind: EventConnAck, Code: StatusOK})
}

// connackStatus maps a CONNACK return code. refused is false for codes that
// describe local network failures rather than a broker answer.
func connackStatus(code byte) (st Status, refused bool) {
	switch code {
	case packets.Accepted:
		return StatusOK, false
	case packets.ErrRefusedBadProtocolVersion:
		return StatusRefusedProtocolVersion, true
	case packets.ErrRefusedIDRejected:
		return StatusBadClientID, true
	case packets.ErrRefusedServerUnavailable:
		return StatusServiceUnavailable, true
	case packets.ErrRefusedBadUsernameOrPassword:
		return StatusBadUserNamePassword, true
	case packets.ErrRefusedNotAuthorised:
		return StatusNotAuthorized, true
	default:
		return StatusConnectionError, false
	}
}

func (c *mqttConn) push(ev Event) { c.queue.push(ev) }

// immediate returns a token's error if it already completed. Paho fails
// requests on a disconnected client synchronously; anything still in flight
// is fire-and-forget.
func immediate(token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	default:
		return nil
	}
}

func (c *mqttConn) closed() bool { return c.queue.isClosed() }

// Subscribe records topic and subscribes now if connected; otherwise the
// subscription is made when the connection comes up.
func (c *mqttConn) Subscribe(topic string, qos QoS) error {
	if c.closed() {
		return nberrors.ErrClosed
	}
	c.mu.Lock()
	c.subs[topic] = qos
	c.mu.Unlock()
	if !c.client.IsConnectionOpen() {
		return nil
	}
	return immediate(c.client.Subscribe(topic, byte(qos), nil))
}

func (c *mqttConn) Unsubscribe(topic string) error {
	if c.closed() {
		return nberrors.ErrClosed
	}
	c.mu.Lock()
	delete(c.subs, topic)
	c.mu.Unlock()
	if !c.client.IsConnectionOpen() {
		return nil
	}
	return immediate(c.client.Unsubscribe(topic))
}

func (c *mqttConn) Publish(topic string, payload []byte, qos QoS, retain bool) error {
	if c.closed() {
		return nberrors.ErrClosed
	}
	return immediate(c.client.Publish(topic, byte(qos), retain, payload))
}

func (c *mqttConn) Events() <-chan Event { return c.queue.events }

func (c *mqttConn) Close() error {
	c.closeOnce.Do(func() {
		// The queue goes first: paho waits for its callbacks on disconnect,
		// and a callback may be blocked on a full queue.
		close(c.done)
		c.queue.close()
		if c.client.IsConnectionOpen() {
			c.client.Disconnect(mqttDisconnectQuiesce)
		}
		c.wg.Wait()
	})
	return nil
}
