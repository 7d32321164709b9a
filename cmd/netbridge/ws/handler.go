package ws

import (
	"sync"

	"github.com/gezibash/netbridge/cmd/netbridge/host"
)

type handler struct {
	em *host.Emitter

	mu      sync.Mutex
	lastErr string
}

func (h *handler) OnError(msg string) {
	h.mu.Lock()
	h.lastErr = msg
	h.mu.Unlock()
	h.em.Emit("error", "text", msg)
}

func (h *handler) OnText(text string) {
	h.em.Emit("text", "text", text, "size", len(text))
}

func (h *handler) OnBinary(data []byte) {
	h.em.Emit("binary", "size", len(data))
}

func (h *handler) OnPing(data []byte) {
	h.em.Emit("ping", "size", len(data))
}

func (h *handler) OnPong(data []byte) {
	h.em.Emit("pong", "size", len(data))
}

func (h *handler) OnClose() {
	h.em.Emit("close")
}

// lastError returns the most recent error reported by the client.
func (h *handler) lastError() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}
