package mqtt

import (
	"sync"
	"unicode/utf8"

	"github.com/gezibash/netbridge/cmd/netbridge/host"
	"github.com/gezibash/netbridge/internal/pubsub"
)

type handler struct {
	em *host.Emitter

	mu      sync.Mutex
	acked   bool
	connack pubsub.Status
}

func (h *handler) OnKeepAlive() {
	h.em.Emit("keepalive")
}

func (h *handler) OnPublish(topic string, payload []byte) {
	if utf8.Valid(payload) {
		h.em.Emit("publish", "topic", topic, "text", string(payload), "size", len(payload))
		return
	}
	h.em.Emit("publish", "topic", topic, "size", len(payload))
}

func (h *handler) OnConnAck(st pubsub.Status) {
	h.mu.Lock()
	h.acked = true
	h.connack = st
	h.mu.Unlock()
	h.em.Emit("connack", "status", st.String())
}

// connAck returns the acknowledgement status once the broker has answered.
func (h *handler) connAck() (pubsub.Status, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connack, h.acked
}
