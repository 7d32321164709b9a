package host

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/gezibash/netbridge/internal/cli"
)

func TestEmitterHoldsUntilAttached(t *testing.T) {
	em := NewEmitter("ws")
	em.Emit("text", "text", "early")
	em.Emit("close")

	var got []cli.Event
	em.Attach(func(ev cli.Event) { got = append(got, ev) })

	if len(got) != 2 {
		t.Fatalf("flushed %d events, want 2", len(got))
	}
	if got[0].Adapter != "ws" || got[0].Kind != "text" || got[0].Attrs["text"] != "early" {
		t.Errorf("first event = %+v", got[0])
	}

	em.Emit("ping", "size", 0)
	if len(got) != 3 || got[2].Kind != "ping" {
		t.Errorf("events after attach = %+v", got)
	}
}

func TestRunStreamsFilteredEvents(t *testing.T) {
	var buf bytes.Buffer
	out := cli.NewOutput(cli.FormatText, &buf)
	flags := &Flags{Filter: `kind == "text"`}
	em := NewEmitter("ws")
	em.Emit("ping", "size", 0)

	err := Run(context.Background(), flags, out, em, Session{Adapter: "ws"}, func(context.Context) error {
		em.Emit("text", "text", "hello")
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	text := buf.String()
	if strings.Count(text, "\n") != 1 || !strings.Contains(text, "ws text text=hello") {
		t.Errorf("output = %q", text)
	}
}

func TestRunRejectsBadFilter(t *testing.T) {
	flags := &Flags{Filter: `kind ==`}
	out := cli.NewOutput(cli.FormatText, &bytes.Buffer{})

	called := false
	err := Run(context.Background(), flags, out, NewEmitter("mdns"), Session{}, func(context.Context) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected compile error")
	}
	if called {
		t.Error("loop ran despite invalid filter")
	}
}

func TestUseTUIRequiresFlag(t *testing.T) {
	f := &Flags{}
	if f.UseTUI() {
		t.Error("UseTUI() = true without --tui")
	}
}
