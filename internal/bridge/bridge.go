// Package bridge connects a polling host to a background worker through two
// bounded queues.
//
// The host side (Service) submits requests without blocking and drains
// results when it chooses; every drained result is dispatched to a Handler
// on the draining goroutine. The worker side (Backend) consumes requests and
// delivers replies and notices, signalling a Notifier after each delivery so
// the host knows to drain.
//
// Neither side ever closes the data channels. Termination is signalled
// through separate done channels so a late send can never panic.
package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/pkg/logging"
)

const (
	DefaultRequestCapacity = 32
	DefaultReplyCapacity   = 16
)

// Options configures a bridge pair.
type Options struct {
	// Name labels logs and metrics ("bot").
	Name string
	// ID identifies this instance to the Notifier.
	ID uint64

	RequestCapacity int
	ReplyCapacity   int

	Notifier Notifier
	Logger   *logging.Logger
	Metrics  *observability.Metrics
}

type result[Rep any] struct {
	reply    Rep
	notice   Notice
	isNotice bool
}

type shared[Req, Rep any] struct {
	name     string
	id       uint64
	requests chan Req
	replies  chan result[Rep]

	// terminated is closed by the worker when it stops consuming requests.
	terminated chan struct{}
	termOnce   sync.Once
	// released is closed by the host when it stops draining replies.
	released    chan struct{}
	releaseOnce sync.Once

	notifier Notifier
	log      *logging.Logger
	metrics  *observability.Metrics
}

// New creates the two ends of a bridge. h receives dispatched results.
func New[Req, Rep any](opts Options, h Handler[Rep]) (*Service[Req, Rep], *Backend[Req, Rep]) {
	if opts.RequestCapacity <= 0 {
		opts.RequestCapacity = DefaultRequestCapacity
	}
	if opts.ReplyCapacity <= 0 {
		opts.ReplyCapacity = DefaultReplyCapacity
	}
	if opts.Name == "" {
		opts.Name = "bridge"
	}
	log := opts.Logger
	if log == nil {
		log = logging.New(nil)
	}

	s := &shared[Req, Rep]{
		name:       opts.Name,
		id:         opts.ID,
		requests:   make(chan Req, opts.RequestCapacity),
		replies:    make(chan result[Rep], opts.ReplyCapacity),
		terminated: make(chan struct{}),
		released:   make(chan struct{}),
		notifier:   opts.Notifier,
		log:        log.WithAdapter(opts.Name, opts.ID),
		metrics:    opts.Metrics,
	}
	return &Service[Req, Rep]{shared: s, handler: h}, &Backend[Req, Rep]{shared: s}
}

// Service is the host-facing end of the bridge.
type Service[Req, Rep any] struct {
	*shared[Req, Rep]
	handler Handler[Rep]

	drainMu sync.Mutex
}

// ID returns the instance id passed to the Notifier.
func (s *Service[Req, Rep]) ID() uint64 { return s.id }

// Submit enqueues req without blocking. When the queue is full or the worker
// has terminated it reports the failure through the handler's OnError and
// returns false; the request is dropped.
func (s *Service[Req, Rep]) Submit(req Req) bool {
	select {
	case <-s.terminated:
		s.reject("terminated", "background worker terminated")
		return false
	default:
	}

	select {
	case s.requests <- req:
		s.metrics.Request(s.name, "accepted")
		return true
	default:
		s.reject("queue_full", fmt.Sprintf("request queue full (capacity %d)", cap(s.requests)))
		return false
	}
}

func (s *Service[Req, Rep]) reject(result, msg string) {
	s.metrics.Request(s.name, result)
	s.log.Warn("request dropped", "reason", msg)
	s.handler.OnError(msg)
}

// BlockingSubmit waits for queue capacity. It returns false if ctx ends or
// the worker terminates first. Intended for teardown, not the polling path.
func (s *Service[Req, Rep]) BlockingSubmit(ctx context.Context, req Req) bool {
	select {
	case <-s.terminated:
		s.metrics.Request(s.name, "terminated")
		return false
	default:
	}

	select {
	case s.requests <- req:
		s.metrics.Request(s.name, "accepted")
		return true
	case <-s.terminated:
		s.metrics.Request(s.name, "terminated")
		return false
	case <-ctx.Done():
		s.metrics.Request(s.name, "timeout")
		return false
	}
}

// Drain dispatches every result currently queued and returns how many it
// dispatched. Concurrent calls are serialized.
func (s *Service[Req, Rep]) Drain() int {
	s.drainMu.Lock()
	defer s.drainMu.Unlock()

	n := 0
	for {
		select {
		case r := <-s.replies:
			dispatch(s.handler, r)
			n++
		default:
			s.metrics.Dispatch(s.name, n)
			return n
		}
	}
}

// Pending returns the number of results waiting to be drained.
func (s *Service[Req, Rep]) Pending() int { return len(s.replies) }

// Terminated is closed once the worker has stopped.
func (s *Service[Req, Rep]) Terminated() <-chan struct{} { return s.terminated }

// Release tells the worker the host will not drain anymore; blocked
// deliveries fail instead of waiting for room.
func (s *Service[Req, Rep]) Release() {
	s.releaseOnce.Do(func() { close(s.released) })
}

// Backend is the worker-facing end of the bridge.
type Backend[Req, Rep any] struct {
	*shared[Req, Rep]
}

// Requests returns the queue of submitted requests. It is never closed.
func (b *Backend[Req, Rep]) Requests() <-chan Req { return b.requests }

// Terminate marks the worker as stopped. Later submissions fail. Idempotent.
func (b *Backend[Req, Rep]) Terminate() {
	b.termOnce.Do(func() { close(b.terminated) })
}

// Reply delivers a reply, waiting for room in the reply queue.
func (b *Backend[Req, Rep]) Reply(ctx context.Context, rep Rep) bool {
	return b.deliver(ctx, result[Rep]{reply: rep}, "reply")
}

// Notice delivers a notice, waiting for room in the reply queue. The notice
// is mirrored to the log.
func (b *Backend[Req, Rep]) Notice(ctx context.Context, n Notice) bool {
	switch n.Kind {
	case NoticeError:
		b.log.ErrorContext(ctx, n.Text)
	case NoticeInfo:
		b.log.InfoContext(ctx, n.Text)
	case NoticeProgress:
		b.log.DebugContext(ctx, "progress", "percent", n.Progress)
	default:
		b.log.DebugContext(ctx, n.Text, "kind", n.Kind.String())
	}
	if n.Kind == NoticeError {
		b.metrics.Error(b.name, "notice")
	}
	return b.deliver(ctx, result[Rep]{notice: n, isNotice: true}, n.Kind.String())
}

func (b *Backend[Req, Rep]) Error(ctx context.Context, msg string) bool {
	return b.Notice(ctx, ErrorNotice(msg))
}

func (b *Backend[Req, Rep]) Info(ctx context.Context, msg string) bool {
	return b.Notice(ctx, InfoNotice(msg))
}

func (b *Backend[Req, Rep]) Debug(ctx context.Context, msg string) bool {
	return b.Notice(ctx, DebugNotice(msg))
}

func (b *Backend[Req, Rep]) Log(ctx context.Context, msg string) bool {
	return b.Notice(ctx, LogNotice(msg))
}

func (b *Backend[Req, Rep]) Progress(ctx context.Context, pct uint8) bool {
	return b.Notice(ctx, ProgressNotice(pct))
}

func (b *Backend[Req, Rep]) deliver(ctx context.Context, r result[Rep], kind string) bool {
	select {
	case <-b.released:
		b.log.Warn("delivery failed", "kind", kind, "reason", "host released")
		return false
	default:
	}

	select {
	case b.replies <- r:
	case <-b.released:
		b.log.Warn("delivery failed", "kind", kind, "reason", "host released")
		return false
	case <-ctx.Done():
		b.log.Warn("delivery failed", "kind", kind, "error", ctx.Err())
		return false
	}

	b.metrics.Delivery(b.name, kind)
	if b.notifier != nil {
		b.notifier.Notify(b.id)
	}
	return true
}
