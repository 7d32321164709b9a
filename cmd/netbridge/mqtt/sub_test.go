package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gezibash/netbridge/internal/cli"
	"github.com/gezibash/netbridge/internal/pubsub"
)

type chanConn struct {
	events chan pubsub.Event
}

func newChanConn(evs ...pubsub.Event) *chanConn {
	c := &chanConn{events: make(chan pubsub.Event, len(evs)+1)}
	for _, ev := range evs {
		c.events <- ev
	}
	return c
}

func (c *chanConn) Subscribe(string, pubsub.QoS) error             { return nil }
func (c *chanConn) Unsubscribe(string) error                       { return nil }
func (c *chanConn) Publish(string, []byte, pubsub.QoS, bool) error { return nil }
func (c *chanConn) Events() <-chan pubsub.Event                    { return c.events }
func (c *chanConn) Close() error                                   { return nil }

func TestPollUntilAcked(t *testing.T) {
	h, _ := attached()
	c := pubsub.New(newChanConn(pubsub.Event{Kind: pubsub.EventConnAck, Code: pubsub.StatusOK}), h, pubsub.Options{})

	acked := func() bool { _, ok := h.connAck(); return ok }
	if err := pollUntil(context.Background(), c, h, 10*time.Millisecond, acked); err != nil {
		t.Fatalf("pollUntil: %v", err)
	}
	if !acked() {
		t.Error("returned before the acknowledgement")
	}
}

func TestPollUntilRefused(t *testing.T) {
	h, _ := attached()
	c := pubsub.New(newChanConn(pubsub.Event{Kind: pubsub.EventConnAck, Code: pubsub.StatusBadUserNamePassword}), h, pubsub.Options{})

	err := pollUntil(context.Background(), c, h, 10*time.Millisecond, func() bool { return false })
	if err == nil || !strings.Contains(err.Error(), "bad user name or password") {
		t.Errorf("err = %v", err)
	}
}

func TestPollUntilDisconnected(t *testing.T) {
	h, _ := attached()
	conn := newChanConn()
	close(conn.events)
	c := pubsub.New(conn, h, pubsub.Options{})

	err := pollUntil(context.Background(), c, h, 10*time.Millisecond, func() bool { return false })
	if err == nil || !strings.Contains(err.Error(), "disconnected") {
		t.Errorf("err = %v", err)
	}
}

func TestPollUntilContextEnds(t *testing.T) {
	h, _ := attached()
	c := pubsub.New(newChanConn(), h, pubsub.Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := pollUntil(ctx, c, h, 5*time.Millisecond, func() bool { return false }); err != nil {
		t.Errorf("pollUntil: %v", err)
	}
}

func TestRenderSubscriptions(t *testing.T) {
	h, _ := attached()
	c := pubsub.New(newChanConn(), h, pubsub.Options{})
	c.Subscribe("sensors/#", pubsub.AtLeastOnce)
	c.Subscribe("alerts", pubsub.AtMostOnce)

	var buf bytes.Buffer
	if err := renderSubscriptions(cli.NewOutput(cli.FormatJSON, &buf), c, "mqtt://localhost"); err != nil {
		t.Fatalf("renderSubscriptions: %v", err)
	}

	var envelope struct {
		Meta cli.Meta         `json:"meta"`
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, buf.String())
	}
	if envelope.Meta.Type != "mqtt-subscriptions" || envelope.Meta.Adapter != "mqtt" {
		t.Errorf("meta = %+v", envelope.Meta)
	}
	want := []map[string]any{
		{"topic": "alerts", "qos": float64(0)},
		{"topic": "sensors/#", "qos": float64(1)},
	}
	if len(envelope.Data) != len(want) {
		t.Fatalf("rows = %v", envelope.Data)
	}
	for i := range want {
		if envelope.Data[i]["topic"] != want[i]["topic"] || envelope.Data[i]["qos"] != want[i]["qos"] {
			t.Errorf("row %d = %v, want %v", i, envelope.Data[i], want[i])
		}
	}
}

func TestRenderSubscriptionsTextCaption(t *testing.T) {
	h, _ := attached()
	c := pubsub.New(newChanConn(), h, pubsub.Options{})
	c.Subscribe("alerts", pubsub.ExactlyOnce)

	var buf bytes.Buffer
	if err := renderSubscriptions(cli.NewOutput(cli.FormatText, &buf), c, "nats://localhost:4222"); err != nil {
		t.Fatalf("renderSubscriptions: %v", err)
	}
	for _, want := range []string{"alerts", "2", "subscribed on nats://localhost:4222"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output should contain %q, got:\n%s", want, buf.String())
		}
	}
}
