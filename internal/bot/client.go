package bot

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gezibash/netbridge/internal/bridge"
	"github.com/gezibash/netbridge/internal/filesink"
	"github.com/gezibash/netbridge/internal/filesink/fs"
	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/internal/offsetstore"
	"github.com/gezibash/netbridge/pkg/logging"
)

const (
	DefaultPollTimeout = 10 * time.Second
	DefaultQuitTimeout = time.Second
)

// Handler receives everything the bot produces. Methods are invoked from
// Process on the polling goroutine.
type Handler interface {
	OnError(msg string)
	OnInfo(msg string)
	OnDebug(msg string)
	OnLog(msg string)
	OnProgress(pct uint8)

	OnWhoami(UserInfo)
	OnText(TextMessage)
	OnLocation(LocationMessage)
	OnSticker(StickerMessage)
	OnVoice(VoiceMessage)
	OnAudio(AudioMessage)
}

// BaseHandler implements Handler with no-ops.
type BaseHandler struct{}

func (BaseHandler) OnError(string)             {}
func (BaseHandler) OnInfo(string)              {}
func (BaseHandler) OnDebug(string)             {}
func (BaseHandler) OnLog(string)               {}
func (BaseHandler) OnProgress(uint8)           {}
func (BaseHandler) OnWhoami(UserInfo)          {}
func (BaseHandler) OnText(TextMessage)         {}
func (BaseHandler) OnLocation(LocationMessage) {}
func (BaseHandler) OnSticker(StickerMessage)   {}
func (BaseHandler) OnVoice(VoiceMessage)       {}
func (BaseHandler) OnAudio(AudioMessage)       {}

// dispatcher adapts Handler to the bridge's single reply callback.
type dispatcher struct {
	Handler
}

func (d dispatcher) OnReply(r Reply) {
	switch r := r.(type) {
	case UserInfo:
		d.OnWhoami(r)
	case TextMessage:
		d.OnText(r)
	case LocationMessage:
		d.OnLocation(r)
	case StickerMessage:
		d.OnSticker(r)
	case VoiceMessage:
		d.OnVoice(r)
	case AudioMessage:
		d.OnAudio(r)
	default:
		d.OnError(fmt.Sprintf("unknown reply %T", r))
	}
}

// Options configures a Client.
type Options struct {
	// ID is passed to Notifier so one callback can serve several clients.
	ID       uint64
	Notifier bridge.Notifier

	RequestCapacity int
	ReplyCapacity   int

	// PollTimeout is how long one long poll waits for updates.
	PollTimeout time.Duration
	// QuitTimeout bounds how long Close waits for the worker.
	QuitTimeout time.Duration

	// Sink receives downloads. Nil writes to the local filesystem with
	// relative names resolved against the working directory.
	Sink filesink.Sink
	// HTTPClient downloads files. Nil uses http.DefaultClient.
	HTTPClient *http.Client

	// Offsets persists the long-poll offset under OffsetKey. Nil keeps it
	// in memory only.
	Offsets   offsetstore.Store
	OffsetKey string

	Logger  *logging.Logger
	Metrics *observability.Metrics
}

// Client is the host-facing bot handle.
type Client struct {
	svc     *bridge.Service[Request, Reply]
	handler Handler
	log     *logging.Logger
	quit    time.Duration

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// New starts a worker for api and returns its handle. A nil handler
// discards everything.
func New(api API, h Handler, opts Options) (*Client, error) {
	if api == nil {
		return nil, fmt.Errorf("bot: nil api")
	}
	if h == nil {
		h = BaseHandler{}
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if opts.QuitTimeout <= 0 {
		opts.QuitTimeout = DefaultQuitTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OffsetKey == "" {
		opts.OffsetKey = "default"
	}
	log := opts.Logger
	if log == nil {
		log = logging.New(nil)
	}
	log = log.WithComponent("bot")

	sink := opts.Sink
	if sink == nil {
		s, err := fs.NewFactory(context.Background(), fs.Defaults())
		if err != nil {
			return nil, fmt.Errorf("bot: default sink: %w", err)
		}
		sink = s
	}

	svc, be := bridge.New[Request, Reply](bridge.Options{
		Name:            "bot",
		ID:              opts.ID,
		RequestCapacity: opts.RequestCapacity,
		ReplyCapacity:   opts.ReplyCapacity,
		Notifier:        opts.Notifier,
		Logger:          log,
		Metrics:         opts.Metrics,
	}, dispatcher{h})

	w := &worker{
		api:     api,
		be:      be,
		sink:    sink,
		client:  opts.HTTPClient,
		offsets: opts.Offsets,
		key:     opts.OffsetKey,
		timeout: opts.PollTimeout,
		log:     log,
		metrics: opts.Metrics,
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		svc:     svc,
		handler: h,
		log:     log,
		quit:    opts.QuitTimeout,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		w.run(ctx)
	}()
	return c, nil
}

func (c *Client) submit(req Request) bool {
	if c == nil {
		return false
	}
	return c.svc.Submit(req)
}

func (c *Client) reject(msg string) bool {
	c.log.Debug("request rejected", "reason", msg)
	c.handler.OnError(msg)
	return false
}

// SendText posts text to chatID, replying to msgID when positive.
func (c *Client) SendText(chatID int64, msgID int, text string) bool {
	if c == nil {
		return false
	}
	if text == "" || !utf8.ValidString(text) {
		return c.reject("invalid text message")
	}
	return c.submit(SendText{ChatID: chatID, MessageID: msgID, Text: text})
}

// SendAudio uploads the audio file at path to chatID.
func (c *Client) SendAudio(chatID int64, path string) bool {
	if c == nil {
		return false
	}
	if path == "" {
		return c.reject("invalid file")
	}
	return c.submit(SendAudio{ChatID: chatID, Path: path})
}

// SendVoice uploads the voice note at path to chatID.
func (c *Client) SendVoice(chatID int64, path string) bool {
	if c == nil {
		return false
	}
	if path == "" {
		return c.reject("invalid file")
	}
	return c.submit(SendVoice{ChatID: chatID, Path: path})
}

// GetFile downloads fileID into baseDir.
func (c *Client) GetFile(fileID, baseDir string) bool {
	if c == nil {
		return false
	}
	if fileID == "" {
		return c.reject("invalid file id")
	}
	return c.submit(GetFile{FileID: fileID, BaseDir: baseDir})
}

// Whoami requests the bot's own account; the answer arrives via OnWhoami.
func (c *Client) Whoami() bool { return c.submit(Whoami{}) }

// Logout logs the bot out of the API server.
func (c *Client) Logout() bool { return c.submit(Logout{}) }

// Process dispatches every queued result and returns how many it
// dispatched. Call it from one goroutine at a time.
func (c *Client) Process() int {
	if c == nil {
		return 0
	}
	return c.svc.Drain()
}

// ID returns the instance id passed to the Notifier.
func (c *Client) ID() uint64 { return c.svc.ID() }

// Done is closed once the worker has exited.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close asks the worker to quit and waits at most QuitTimeout for it
// before cancelling whatever it is doing. Results not yet processed are
// discarded. Safe to call more than once.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.quit)
		defer cancel()

		if !c.svc.BlockingSubmit(ctx, Quit{}) {
			c.log.Debug("quit not delivered")
		}
		c.svc.Release()

		select {
		case <-c.done:
		case <-ctx.Done():
			c.log.Warn("worker did not stop in time, cancelling")
		}
		c.cancel()
		<-c.done
	})
	return nil
}
