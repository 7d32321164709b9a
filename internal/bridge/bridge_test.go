package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gezibash/netbridge/internal/observability"
	"github.com/gezibash/netbridge/pkg/logging"
)

type recorder struct {
	replies  []string
	errors   []string
	infos    []string
	debugs   []string
	logs     []string
	progress []uint8
}

func (r *recorder) OnReply(s string)   { r.replies = append(r.replies, s) }
func (r *recorder) OnError(s string)   { r.errors = append(r.errors, s) }
func (r *recorder) OnInfo(s string)    { r.infos = append(r.infos, s) }
func (r *recorder) OnDebug(s string)   { r.debugs = append(r.debugs, s) }
func (r *recorder) OnLog(s string)     { r.logs = append(r.logs, s) }
func (r *recorder) OnProgress(p uint8) { r.progress = append(r.progress, p) }

func newPair(t *testing.T, opts Options) (*Service[int, string], *Backend[int, string], *recorder) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	rec := &recorder{}
	svc, be := New[int, string](opts, rec)
	return svc, be, rec
}

// --- Submit ---

func TestSubmitQueueFull(t *testing.T) {
	m := observability.NewMetrics()
	svc, be, rec := newPair(t, Options{Name: "test", RequestCapacity: 2, Metrics: m})

	assert.True(t, svc.Submit(1))
	assert.True(t, svc.Submit(2))
	assert.False(t, svc.Submit(3))

	require.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "queue full")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("test", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("test", "queue_full")))

	// The dropped request never reaches the worker.
	assert.Equal(t, 1, <-be.Requests())
	assert.Equal(t, 2, <-be.Requests())
	select {
	case v := <-be.Requests():
		t.Fatalf("unexpected request %d", v)
	default:
	}
}

func TestSubmitAfterTerminate(t *testing.T) {
	svc, be, rec := newPair(t, Options{})

	be.Terminate()
	be.Terminate()

	assert.False(t, svc.Submit(1))
	require.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "terminated")
	assert.False(t, svc.BlockingSubmit(context.Background(), 1))
}

func TestBlockingSubmitWaitsForRoom(t *testing.T) {
	svc, be, _ := newPair(t, Options{RequestCapacity: 1})
	require.True(t, svc.Submit(1))

	done := make(chan bool)
	go func() { done <- svc.BlockingSubmit(context.Background(), 2) }()

	select {
	case <-done:
		t.Fatal("BlockingSubmit returned while the queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	assert.Equal(t, 1, <-be.Requests())
	assert.True(t, <-done)
	assert.Equal(t, 2, <-be.Requests())
}

func TestBlockingSubmitContext(t *testing.T) {
	svc, _, _ := newPair(t, Options{RequestCapacity: 1})
	require.True(t, svc.Submit(1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.False(t, svc.BlockingSubmit(ctx, 2))
}

// --- Drain ---

func TestDrainEmptyIsNoop(t *testing.T) {
	svc, _, rec := newPair(t, Options{})
	assert.Equal(t, 0, svc.Drain())
	assert.Empty(t, rec.replies)
	assert.Empty(t, rec.errors)
}

func TestDrainDispatchesInOrder(t *testing.T) {
	ctx := context.Background()
	svc, be, rec := newPair(t, Options{ReplyCapacity: 16})

	require.True(t, be.Reply(ctx, "a"))
	require.True(t, be.Error(ctx, "bad"))
	require.True(t, be.Info(ctx, "hello"))
	require.True(t, be.Debug(ctx, "dbg"))
	require.True(t, be.Log(ctx, "line"))
	require.True(t, be.Progress(ctx, 250))
	require.True(t, be.Reply(ctx, "b"))
	assert.Equal(t, 7, svc.Pending())

	assert.Equal(t, 7, svc.Drain())
	assert.Equal(t, []string{"a", "b"}, rec.replies)
	assert.Equal(t, []string{"bad"}, rec.errors)
	assert.Equal(t, []string{"hello"}, rec.infos)
	assert.Equal(t, []string{"dbg"}, rec.debugs)
	assert.Equal(t, []string{"line"}, rec.logs)
	assert.Equal(t, []uint8{100}, rec.progress)
	assert.Equal(t, 0, svc.Drain())
}

func TestDrainSerialized(t *testing.T) {
	ctx := context.Background()
	svc, be, rec := newPair(t, Options{ReplyCapacity: 64})
	for i := 0; i < 64; i++ {
		require.True(t, be.Reply(ctx, "x"))
	}

	var wg sync.WaitGroup
	var total atomic.Int64
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			total.Add(int64(svc.Drain()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(64), total.Load())
	assert.Len(t, rec.replies, 64)
}

// --- Delivery ---

func TestNotifyOncePerDelivery(t *testing.T) {
	var calls atomic.Int64
	var lastID atomic.Uint64
	notify := NotifyFunc(func(id uint64) {
		calls.Add(1)
		lastID.Store(id)
	})
	svc, be, _ := newPair(t, Options{ID: 7, ReplyCapacity: 4, Notifier: notify})

	ctx := context.Background()
	require.True(t, be.Reply(ctx, "a"))
	require.True(t, be.Progress(ctx, 10))
	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, uint64(7), lastID.Load())

	// A failed delivery does not notify.
	svc.Release()
	assert.False(t, be.Reply(ctx, "b"))
	assert.Equal(t, int64(2), calls.Load())
}

func TestDeliveryBlocksUntilDrained(t *testing.T) {
	svc, be, rec := newPair(t, Options{ReplyCapacity: 1})
	ctx := context.Background()
	require.True(t, be.Reply(ctx, "first"))

	done := make(chan bool)
	go func() { done <- be.Reply(ctx, "second") }()

	select {
	case <-done:
		t.Fatal("delivery returned while the reply queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	svc.Drain()
	require.True(t, <-done)
	svc.Drain()
	assert.Equal(t, []string{"first", "second"}, rec.replies)
}

func TestDeliveryContextCancelled(t *testing.T) {
	_, be, _ := newPair(t, Options{ReplyCapacity: 1})
	require.True(t, be.Reply(context.Background(), "fill"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, be.Error(ctx, "lost"))
}

// Replies never exceed submissions plus notices.
func TestRequestReplyAccounting(t *testing.T) {
	svc, be, rec := newPair(t, Options{RequestCapacity: 8, ReplyCapacity: 8})

	go func() {
		ctx := context.Background()
		for req := range be.Requests() {
			if req < 0 {
				be.Terminate()
				return
			}
			be.Reply(ctx, "ok")
		}
	}()

	submitted := 0
	for i := 0; i < 5; i++ {
		if svc.Submit(i) {
			submitted++
		}
	}
	require.True(t, svc.BlockingSubmit(context.Background(), -1))

	select {
	case <-svc.Terminated():
	case <-time.After(time.Second):
		t.Fatal("worker did not terminate")
	}
	svc.Drain()
	assert.Len(t, rec.replies, submitted)
	assert.Empty(t, rec.errors)
}

func TestBaseHandler(t *testing.T) {
	var h Handler[int] = BaseHandler[int]{}
	dispatch(h, result[int]{reply: 1})
	dispatch(h, result[int]{notice: ErrorNotice("x"), isNotice: true})
}

func TestNoticeString(t *testing.T) {
	assert.Equal(t, "error: boom", ErrorNotice("boom").String())
	assert.Equal(t, "progress 42%", ProgressNotice(42).String())
	assert.Equal(t, "notice(9)", NoticeKind(9).String())
}
