package bot

import (
	"strings"
	"sync"

	"github.com/gezibash/netbridge/cmd/netbridge/host"
	"github.com/gezibash/netbridge/internal/bot"
)

const downloadedPrefix = "file downloaded to '"

// handler turns bot callbacks into events and remembers what one-shot
// commands wait for. Callbacks run on the goroutine calling Process.
type handler struct {
	em *host.Emitter

	// onText and onMedia, when set, see inbound text messages and the file
	// ids of inbound voice and audio.
	onText  func(bot.TextMessage)
	onMedia func(fileID string)

	mu         sync.Mutex
	user       *bot.UserInfo
	errMsg     string
	downloaded string
}

func newHandler() *handler {
	return &handler{em: host.NewEmitter("bot")}
}

func (h *handler) OnError(msg string) {
	h.mu.Lock()
	if h.errMsg == "" {
		h.errMsg = msg
	}
	h.mu.Unlock()
	h.em.Emit("error", "text", msg)
}

func (h *handler) OnInfo(msg string) { h.em.Emit("info", "text", msg) }

func (h *handler) OnDebug(msg string) {
	if loc, ok := strings.CutPrefix(msg, downloadedPrefix); ok {
		h.mu.Lock()
		h.downloaded = strings.TrimSuffix(loc, "'")
		h.mu.Unlock()
	}
	h.em.Emit("debug", "text", msg)
}

func (h *handler) OnLog(msg string) { h.em.Emit("log", "text", msg) }

func (h *handler) OnProgress(pct uint8) { h.em.Emit("progress", "percent", pct) }

func (h *handler) OnWhoami(u bot.UserInfo) {
	h.mu.Lock()
	h.user = &u
	h.mu.Unlock()
	h.em.Emit("whoami", "id", u.ID, "first_name", u.FirstName, "username", u.UserName)
}

func (h *handler) OnText(m bot.TextMessage) {
	h.em.Emit("text", "chat", m.ChatID, "message_id", m.MessageID, "text", m.Text)
	if h.onText != nil {
		h.onText(m)
	}
}

func (h *handler) OnLocation(m bot.LocationMessage) {
	h.em.Emit("location", "chat", m.ChatID, "latitude", m.Latitude, "longitude", m.Longitude)
}

func (h *handler) OnSticker(m bot.StickerMessage) {
	h.em.Emit("sticker", "chat", m.ChatID, "file_id", m.FileID, "emoji", m.Emoji)
}

func (h *handler) OnVoice(m bot.VoiceMessage) {
	h.em.Emit("voice",
		"chat", m.ChatID,
		"file_id", m.FileID,
		"mime_type", m.MimeType,
		"duration", m.Duration,
		"size", m.FileSize,
	)
	if h.onMedia != nil {
		h.onMedia(m.FileID)
	}
}

func (h *handler) OnAudio(m bot.AudioMessage) {
	h.em.Emit("audio",
		"chat", m.ChatID,
		"file_id", m.FileID,
		"mime_type", m.MimeType,
		"file_name", m.FileName,
		"title", m.Title,
		"duration", m.Duration,
		"size", m.FileSize,
	)
	if h.onMedia != nil {
		h.onMedia(m.FileID)
	}
}

func (h *handler) firstError() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.errMsg
}

func (h *handler) whoami() (bot.UserInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.user == nil {
		return bot.UserInfo{}, false
	}
	return *h.user, true
}

func (h *handler) downloadedTo() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.downloaded
}
