package bot

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/gezibash/netbridge/internal/bridge"
	"github.com/gezibash/netbridge/internal/filesink"
	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/internal/offsetstore"
	"github.com/gezibash/netbridge/pkg/runtime"
)

const componentKey = "bot"

// Config configures the bot capability.
type Config struct {
	Token  string
	APIURL string

	PollTimeout     time.Duration
	RequestCapacity int
	ReplyCapacity   int

	// Sink and Offsets name registered backends. Backends must be linked
	// in by the caller (blank import of the backend package).
	SinkBackend    string
	SinkConfig     map[string]string
	OffsetsBackend string
	OffsetsConfig  map[string]string

	Notifier bridge.Notifier
}

// dataPaths places file-backed offset stores in the data directory unless
// a path is configured.
var dataPaths = map[string]string{
	"badger": "offsets",
	"sqlite": "offsets.db",
}

// Capability returns a runtime extension that opens the download sink and
// the offset store, then starts a Client delivering to h. On shutdown the
// client stops first, then the store and the sink close.
func Capability(cfg Config, h Handler) runtime.Extension {
	return func(rt *runtime.Runtime) error {
		ctx := rt.Context()
		metrics := observability.MetricsFrom(rt)

		api, err := NewTelegramAPI(cfg.Token, cfg.APIURL, nil)
		if err != nil {
			return fmt.Errorf("bot: %w", err)
		}

		var sink filesink.Sink
		if cfg.SinkBackend != "" {
			sink, err = filesink.New(ctx, cfg.SinkBackend, cfg.SinkConfig, metrics)
			if err != nil {
				return fmt.Errorf("bot: sink: %w", err)
			}
			rt.OnClose(sink.Close)
		}

		var offsets offsetstore.Store
		if cfg.OffsetsBackend != "" {
			conf := maps.Clone(cfg.OffsetsConfig)
			if conf == nil {
				conf = make(map[string]string)
			}
			if name, ok := dataPaths[cfg.OffsetsBackend]; ok && conf["path"] == "" {
				conf["path"] = rt.DataPath(name)
			}
			offsets, err = offsetstore.New(ctx, cfg.OffsetsBackend, conf, metrics)
			if err != nil {
				return fmt.Errorf("bot: offsets: %w", err)
			}
			rt.OnClose(offsets.Close)
		}

		c, err := New(api, h, Options{
			Notifier:        cfg.Notifier,
			RequestCapacity: cfg.RequestCapacity,
			ReplyCapacity:   cfg.ReplyCapacity,
			PollTimeout:     cfg.PollTimeout,
			Sink:            sink,
			HTTPClient:      api.HTTPClient(),
			Offsets:         offsets,
			OffsetKey:       OffsetKey(cfg.Token),
			Logger:          rt.Log(),
			Metrics:         metrics,
		})
		if err != nil {
			return err
		}
		return Attach(c)(rt)
	}
}

// OffsetKey derives the offset store key from a token: the numeric bot id
// before the colon, so one store can serve several bots without holding
// their secrets.
func OffsetKey(token string) string {
	id, _, _ := strings.Cut(token, ":")
	if id == "" {
		return "default"
	}
	return "bot" + id
}

// Attach stores a Client on the runtime and closes it on shutdown.
func Attach(c *Client) runtime.Extension {
	return func(rt *runtime.Runtime) error {
		rt.Set(componentKey, c)
		rt.OnClose(c.Close)
		return nil
	}
}

// From retrieves the Client from the runtime.
// Returns nil if the bot was not configured.
func From(rt *runtime.Runtime) *Client {
	c, _ := rt.Get(componentKey).(*Client)
	return c
}
