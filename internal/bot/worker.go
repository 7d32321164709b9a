package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gezibash/netbridge/internal/bridge"
	"github.com/gezibash/netbridge/internal/filesink"
	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/internal/offsetstore"
	"github.com/gezibash/netbridge/pkg/logging"
)

type pollResult struct {
	updates []tgbotapi.Update
	err     error
}

// worker owns the API client. It runs on its own goroutine and talks to
// the host only through the bridge backend.
type worker struct {
	api     API
	be      *bridge.Backend[Request, Reply]
	sink    filesink.Sink
	client  *http.Client
	offsets offsetstore.Store
	key     string
	timeout time.Duration
	log     *logging.Logger
	metrics *observability.Metrics

	offset int64
}

func (w *worker) run(ctx context.Context) {
	defer w.be.Terminate()

	w.restoreOffset(ctx)

	polls := make(chan pollResult, 1)
	w.poll(ctx, polls)

	for {
		select {
		case req := <-w.be.Requests():
			if !w.handle(ctx, req) {
				w.log.Debug("worker stopped", "reason", "quit")
				return
			}
		case res := <-polls:
			if res.err != nil {
				if ctx.Err() != nil {
					return
				}
				w.metrics.Error("bot", "poll")
				w.be.Error(ctx, res.err.Error())
				w.log.Debug("worker stopped", "reason", "poll error")
				return
			}
			w.updates(ctx, res.updates)
			w.poll(ctx, polls)
		case <-ctx.Done():
			w.log.Debug("worker stopped", "reason", ctx.Err())
			return
		}
	}
}

// poll starts one long poll. Only one is in flight at a time, so the
// buffered channel never blocks the sender.
func (w *worker) poll(ctx context.Context, out chan<- pollResult) {
	cfg := tgbotapi.NewUpdate(int(w.offset))
	cfg.Timeout = int(w.timeout / time.Second)
	go func() {
		updates, err := w.api.GetUpdates(ctx, cfg)
		out <- pollResult{updates: updates, err: err}
	}()
}

func (w *worker) restoreOffset(ctx context.Context) {
	if w.offsets == nil {
		return
	}
	off, err := offsetstore.LoadOr(ctx, w.offsets, w.key, 0)
	if err != nil {
		w.log.Warn("offset restore failed", "key", w.key, "error", err)
		return
	}
	w.offset = off
	w.log.Debug("offset restored", "key", w.key, "offset", off)
}

func (w *worker) updates(ctx context.Context, updates []tgbotapi.Update) {
	if len(updates) == 0 {
		return
	}
	for _, u := range updates {
		w.update(ctx, u)
		if next := int64(u.UpdateID) + 1; next > w.offset {
			w.offset = next
		}
	}
	if w.offsets == nil {
		return
	}
	if err := w.offsets.Save(ctx, w.key, w.offset); err != nil {
		w.log.Warn("offset save failed", "key", w.key, "offset", w.offset, "error", err)
	}
}

func (w *worker) update(ctx context.Context, u tgbotapi.Update) {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		w.log.Debug("update ignored", "update_id", u.UpdateID)
		w.metrics.Event("bot", "ignored")
		return
	}
	chat := msg.Chat.ID

	if msg.Text != "" {
		w.reply(ctx, TextMessage{ChatID: chat, MessageID: msg.MessageID, Text: msg.Text})
	}
	if loc := msg.Location; loc != nil {
		w.reply(ctx, LocationMessage{ChatID: chat, Latitude: loc.Latitude, Longitude: loc.Longitude})
	}
	if s := msg.Sticker; s != nil {
		w.reply(ctx, StickerMessage{ChatID: chat, FileID: s.FileID, Emoji: s.Emoji})
	}
	if v := msg.Voice; v != nil {
		w.reply(ctx, VoiceMessage{
			ChatID:       chat,
			FileID:       v.FileID,
			FileUniqueID: v.FileUniqueID,
			MimeType:     v.MimeType,
			Duration:     int(v.Duration),
			FileSize:     int64(v.FileSize),
		})
	}
	if a := msg.Audio; a != nil {
		w.reply(ctx, AudioMessage{
			ChatID:       chat,
			FileID:       a.FileID,
			FileUniqueID: a.FileUniqueID,
			MimeType:     a.MimeType,
			FileName:     a.FileName,
			Duration:     int(a.Duration),
			FileSize:     int64(a.FileSize),
			Title:        a.Title,
		})
	}
}

func (w *worker) reply(ctx context.Context, r Reply) {
	w.metrics.Event("bot", r.replyName())
	w.be.Reply(ctx, r)
}

// handle executes one request and reports whether the loop continues.
func (w *worker) handle(ctx context.Context, req Request) bool {
	if _, ok := req.(Quit); ok {
		return false
	}

	id := uuid.NewString()
	ctx, span := observability.StartSpan(ctx, "bot."+req.requestName(),
		attribute.String("netbridge.correlation", id))
	log := w.log.WithCorrelation(id)
	log.DebugContext(ctx, "request", "type", req.requestName())

	err := w.execute(ctx, req)
	if err != nil {
		log.DebugContext(ctx, "request failed", "type", req.requestName(), "error", err)
	}
	observability.EndSpan(span, err)
	return true
}

func (w *worker) execute(ctx context.Context, req Request) error {
	switch r := req.(type) {
	case SendText:
		cfg := tgbotapi.NewMessage(r.ChatID, r.Text)
		if r.MessageID > 0 {
			cfg.ReplyToMessageID = r.MessageID
		}
		if err := w.api.Send(ctx, cfg); err != nil {
			return w.fail(ctx, "send message error: %v", err)
		}
	case SendAudio:
		if err := w.api.Send(ctx, tgbotapi.NewAudio(r.ChatID, tgbotapi.FilePath(r.Path))); err != nil {
			return w.fail(ctx, "send audio error: %v", err)
		}
	case SendVoice:
		if err := w.api.Send(ctx, tgbotapi.NewVoice(r.ChatID, tgbotapi.FilePath(r.Path))); err != nil {
			return w.fail(ctx, "send voice error: %v", err)
		}
	case GetFile:
		return w.download(ctx, r)
	case Whoami:
		u, err := w.api.GetMe(ctx)
		if err != nil {
			return w.fail(ctx, "whoami error: %v", err)
		}
		w.reply(ctx, UserInfo{ID: int64(u.ID), FirstName: u.FirstName, UserName: u.UserName})
	case Logout:
		if err := w.api.LogOut(ctx); err != nil {
			return w.fail(ctx, "logout error: %v", err)
		}
	default:
		return w.fail(ctx, "unsupported request %T", req)
	}
	return nil
}

func (w *worker) fail(ctx context.Context, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	w.be.Error(ctx, err.Error())
	return err
}
