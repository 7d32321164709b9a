package pubsub

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gezibash/netbridge/internal/observability"
	nberrors "github.com/gezibash/netbridge/pkg/errors"
	"github.com/gezibash/netbridge/pkg/logging"
)

type published struct {
	topic   string
	payload []byte
	qos     QoS
	retain  bool
}

type fakeConn struct {
	events       chan Event
	subscribeErr error
	subscribed   []string
	unsubscribed []string
	published    []published
	closed       bool
}

func newFakeConn() *fakeConn { return &fakeConn{events: make(chan Event, 8)} }

func (f *fakeConn) Subscribe(topic string, _ QoS) error {
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscribed = append(f.subscribed, topic)
	return nil
}

func (f *fakeConn) Unsubscribe(topic string) error {
	f.unsubscribed = append(f.unsubscribed, topic)
	return nil
}

func (f *fakeConn) Publish(topic string, payload []byte, qos QoS, retain bool) error {
	if f.closed {
		return nberrors.ErrClosed
	}
	f.published = append(f.published, published{topic, payload, qos, retain})
	return nil
}

func (f *fakeConn) Events() <-chan Event { return f.events }

func (f *fakeConn) Close() error {
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

type recorder struct {
	keepAlives int
	topics     []string
	payloads   [][]byte
	acks       []Status
}

func (r *recorder) OnKeepAlive() { r.keepAlives++ }

func (r *recorder) OnPublish(topic string, payload []byte) {
	r.topics = append(r.topics, topic)
	r.payloads = append(r.payloads, payload)
}

func (r *recorder) OnConnAck(code Status) { r.acks = append(r.acks, code) }

func newTestClient(t *testing.T) (*Client, *fakeConn, *recorder) {
	t.Helper()
	conn := newFakeConn()
	rec := &recorder{}
	return New(conn, rec, Options{Logger: logging.Discard()}), conn, rec
}

// --- Poll ---

func TestPollTimeoutIsOK(t *testing.T) {
	c, _, rec := newTestClient(t)

	start := time.Now()
	assert.Equal(t, StatusOK, c.Poll(10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	assert.Zero(t, rec.keepAlives)
	assert.Empty(t, rec.topics)
}

func TestPollDispatchesOneEvent(t *testing.T) {
	m := observability.NewMetrics()
	conn := newFakeConn()
	rec := &recorder{}
	c := New(conn, rec, Options{Logger: logging.Discard(), Metrics: m})

	conn.events <- Event{Kind: EventConnAck, Code: StatusBadUserNamePassword}
	conn.events <- Event{Kind: EventPublish, Topic: "a/b", Payload: []byte("hi")}
	conn.events <- Event{Kind: EventKeepAlive}

	assert.Equal(t, StatusOK, c.Poll(time.Second))
	assert.Equal(t, []Status{StatusBadUserNamePassword}, rec.acks)
	assert.Empty(t, rec.topics)

	assert.Equal(t, StatusOK, c.Poll(time.Second))
	assert.Equal(t, []string{"a/b"}, rec.topics)
	assert.Equal(t, []byte("hi"), rec.payloads[0])

	assert.Equal(t, StatusOK, c.Poll(time.Second))
	assert.Equal(t, 1, rec.keepAlives)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("pubsub", "publish")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BytesProcessed.WithLabelValues("pubsub", "in")))
}

func TestPollErrors(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{fmt.Errorf("dial: %w", syscall.ECONNREFUSED), StatusConnectionRefused},
		{fmt.Errorf("read: %w", syscall.ECONNRESET), StatusConnectionReset},
		{ErrFlushTimeout, StatusFlushTimeout},
		{fmt.Errorf("ping: %w", ErrTimeout), StatusNetworkTimeout},
		{nberrors.ErrNotConnected, StatusDisconnected},
		{errors.New("boom"), StatusConnectionError},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			c, conn, _ := newTestClient(t)
			conn.events <- Event{Kind: EventError, Err: tt.err}
			assert.Equal(t, tt.want, c.Poll(time.Second))
		})
	}
}

func TestPollAfterCloseIsDisconnected(t *testing.T) {
	c, _, _ := newTestClient(t)
	require.NoError(t, c.Close())
	assert.Equal(t, StatusDisconnected, c.Poll(time.Second))
	assert.Equal(t, StatusClientError, c.Publish("t", "late", AtMostOnce, false))
}

// --- Subscriptions ---

func TestSubscribeIsIdempotent(t *testing.T) {
	c, conn, _ := newTestClient(t)

	assert.Equal(t, StatusOK, c.Subscribe("sensors/#", AtLeastOnce))
	assert.Equal(t, StatusOK, c.Subscribe("sensors/#", AtLeastOnce))
	assert.Equal(t, []string{"sensors/#"}, conn.subscribed)
	assert.Equal(t, []string{"sensors/#"}, c.Subscriptions())

	assert.Equal(t, StatusOK, c.Unsubscribe("sensors/#"))
	assert.Empty(t, c.Subscriptions())
	assert.Equal(t, StatusOK, c.Subscribe("sensors/#", AtMostOnce))
	assert.Len(t, conn.subscribed, 2)
}

func TestSubscriptionsSortedWithQoS(t *testing.T) {
	c, _, _ := newTestClient(t)

	require.Equal(t, StatusOK, c.Subscribe("sensors/#", ExactlyOnce))
	require.Equal(t, StatusOK, c.Subscribe("alerts", AtLeastOnce))

	assert.Equal(t, []string{"alerts", "sensors/#"}, c.Subscriptions())
	q, ok := c.SubscribedQoS("sensors/#")
	assert.True(t, ok)
	assert.Equal(t, ExactlyOnce, q)
	_, ok = c.SubscribedQoS("missing")
	assert.False(t, ok)
}

func TestSubscribeFailure(t *testing.T) {
	c, conn, _ := newTestClient(t)
	conn.subscribeErr = errors.New("queue full")

	assert.Equal(t, StatusClientError, c.Subscribe("x", AtMostOnce))
	assert.Empty(t, c.Subscriptions())
}

// --- Publish ---

func TestPublish(t *testing.T) {
	c, conn, _ := newTestClient(t)

	assert.Equal(t, StatusOK, c.Publish("t", "hello", ExactlyOnce, true))
	assert.Equal(t, StatusOK, c.PublishData("t", []byte{0, 1}, AtMostOnce, false))
	require.Len(t, conn.published, 2)
	assert.Equal(t, published{"t", []byte("hello"), ExactlyOnce, true}, conn.published[0])
	assert.Equal(t, []byte{0, 1}, conn.published[1].payload)
}

func TestValidation(t *testing.T) {
	c, conn, _ := newTestClient(t)

	assert.Equal(t, StatusInvalidString, c.Subscribe("", AtMostOnce))
	assert.Equal(t, StatusInvalidString, c.Unsubscribe("a\x00b"))
	assert.Equal(t, StatusInvalidString, c.Publish("t", string([]byte{0xff}), AtMostOnce, false))
	assert.Equal(t, StatusInvalidString, c.PublishData("t", nil, AtMostOnce, false))
	assert.Empty(t, conn.subscribed)
	assert.Empty(t, conn.published)
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.Equal(t, StatusInvalidClient, c.Subscribe("t", AtMostOnce))
	assert.Equal(t, StatusInvalidClient, c.Unsubscribe("t"))
	assert.Equal(t, StatusInvalidClient, c.Publish("t", "m", AtMostOnce, false))
	assert.Equal(t, StatusInvalidClient, c.PublishData("t", []byte{1}, AtMostOnce, false))
	assert.Equal(t, StatusInvalidClient, c.Poll(0))
	assert.Nil(t, c.Subscriptions())
	assert.NoError(t, c.Close())
}
