package socket

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gezibash/netbridge/pkg/logging"
)

// fakeTransport replays queued frames, then returns end (ErrWouldBlock by
// default).
type fakeTransport struct {
	frames   []Frame
	end      error
	written  []Frame
	flushed  []Frame
	flushErr error
	closed   bool
	readable bool
	released bool
}

func newFake(frames ...Frame) *fakeTransport {
	return &fakeTransport{frames: frames, end: ErrWouldBlock, readable: true}
}

func (f *fakeTransport) Next() (Frame, error) {
	if len(f.frames) == 0 {
		return Frame{}, f.end
	}
	fr := f.frames[0]
	f.frames = f.frames[1:]
	return fr, nil
}

func (f *fakeTransport) Write(fr Frame) error {
	f.written = append(f.written, fr)
	return nil
}

func (f *fakeTransport) Flush() error {
	if f.flushErr != nil {
		return f.flushErr
	}
	f.flushed = append(f.flushed, f.written...)
	f.written = nil
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func (f *fakeTransport) CanRead() bool  { return f.readable }
func (f *fakeTransport) CanWrite() bool { return !f.closed }
func (f *fakeTransport) Release() error { f.released = true; return nil }

type recorder struct {
	errors []string
	texts  []string
	binary [][]byte
	pings  [][]byte
	pongs  [][]byte
	closes int
}

func (r *recorder) OnError(msg string) { r.errors = append(r.errors, msg) }
func (r *recorder) OnText(s string)    { r.texts = append(r.texts, s) }
func (r *recorder) OnBinary(b []byte)  { r.binary = append(r.binary, b) }
func (r *recorder) OnPing(b []byte)    { r.pings = append(r.pings, b) }
func (r *recorder) OnPong(b []byte)    { r.pongs = append(r.pongs, b) }
func (r *recorder) OnClose()           { r.closes++ }

func newTestClient(t *testing.T, tr Transport) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	return NewClient(tr, rec, Options{Logger: logging.Discard()}), rec
}

// --- Read ---

func TestReadTextThenWouldBlock(t *testing.T) {
	tests := []struct {
		trim Trim
		want string
	}{
		{TrimNone, " hello "},
		{TrimStart, "hello "},
		{TrimEnd, " hello"},
		{TrimBoth, "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.trim.String(), func(t *testing.T) {
			c, rec := newTestClient(t, newFake(Frame{Type: FrameText, Data: []byte(" hello ")}))
			assert.Equal(t, StatusRunloopExit, c.Read(tt.trim))
			assert.Equal(t, []string{tt.want}, rec.texts)
			assert.Empty(t, rec.errors)
		})
	}
}

func TestReadDispatchesEveryFrameKind(t *testing.T) {
	tr := newFake(
		Frame{Type: FrameBinary, Data: []byte{1, 2}},
		Frame{Type: FramePing, Data: []byte("p")},
		Frame{Type: FramePong, Data: []byte("q")},
		Frame{Type: FrameClose},
	)
	c, rec := newTestClient(t, tr)

	assert.Equal(t, StatusRunloopExit, c.Read(TrimNone))
	assert.Equal(t, [][]byte{{1, 2}}, rec.binary)
	assert.Equal(t, [][]byte{[]byte("p")}, rec.pings)
	assert.Equal(t, [][]byte{[]byte("q")}, rec.pongs)
	assert.Zero(t, rec.closes)

	require.Len(t, tr.flushed, 1)
	assert.Equal(t, Frame{Type: FramePong, Data: []byte("p")}, tr.flushed[0])
}

func TestReadTerminalConditions(t *testing.T) {
	tests := []struct {
		name    string
		end     error
		want    Status
		message string
	}{
		{"closed", ErrConnectionClosed, StatusConnectionClosed, ""},
		{"already closed", ErrAlreadyClosed, StatusNoData, "already closed"},
		{"io", &TransportError{Kind: KindIO, Err: errors.New("reset")}, StatusNoData, "IO error: reset"},
		{"tls", &TransportError{Kind: KindTLS, Err: errors.New("bad cert")}, StatusNoData, "TLS error: bad cert"},
		{"other", errors.New("weird"), StatusNoData, "error: weird"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newFake()
			tr.end = tt.end
			c, rec := newTestClient(t, tr)

			assert.Equal(t, tt.want, c.Read(TrimNone))
			if tt.message == "" {
				assert.Empty(t, rec.errors)
				assert.Equal(t, 1, rec.closes)
				return
			}
			assert.Equal(t, []string{tt.message}, rec.errors)
		})
	}
}

func TestReadUnreadable(t *testing.T) {
	tr := newFake(Frame{Type: FrameText, Data: []byte("x")})
	tr.readable = false
	c, rec := newTestClient(t, tr)

	assert.Equal(t, StatusCloseError, c.Read(TrimNone))
	assert.Empty(t, rec.texts)
}

// --- Send ---

func TestSendFlushSelectsBuffering(t *testing.T) {
	tr := newFake()
	c, _ := newTestClient(t, tr)

	assert.Equal(t, StatusOK, c.SendText("a", false))
	assert.Empty(t, tr.flushed)
	assert.Len(t, tr.written, 1)

	assert.Equal(t, StatusOK, c.SendBinary([]byte{9}, true))
	assert.Len(t, tr.flushed, 2)

	assert.Equal(t, StatusOK, c.SendText("b", false))
	assert.Equal(t, StatusOK, c.Flush())
	assert.Len(t, tr.flushed, 3)
}

func TestSendValidation(t *testing.T) {
	c, rec := newTestClient(t, newFake())

	assert.Equal(t, StatusInvalidData, c.SendBinary(nil, true))
	assert.Equal(t, StatusInvalidMessage, c.SendText(string([]byte{0xff}), true))
	assert.Equal(t, []string{"invalid data", "invalid message"}, rec.errors)
}

func TestSendPingAlwaysFlushes(t *testing.T) {
	tr := newFake()
	c, _ := newTestClient(t, tr)

	assert.Equal(t, StatusOK, c.SendPing(nil))
	require.Len(t, tr.flushed, 1)
	assert.Equal(t, FramePing, tr.flushed[0].Type)
}

func TestSendError(t *testing.T) {
	tr := newFake()
	tr.flushErr = errors.New("broken pipe")
	c, rec := newTestClient(t, tr)

	assert.Equal(t, StatusSendError, c.SendText("x", true))
	assert.Equal(t, []string{"send error: broken pipe"}, rec.errors)
}

// --- Close ---

func TestWritesAfterCloseFailFast(t *testing.T) {
	tr := newFake()
	c, rec := newTestClient(t, tr)

	assert.Equal(t, StatusOK, c.Close())
	assert.Equal(t, StatusCloseError, c.SendText("late", true))
	assert.Equal(t, StatusCloseError, c.SendPing(nil))
	assert.Equal(t, StatusCloseError, c.Close())
	assert.Empty(t, tr.written)
	assert.Equal(t, []string{"connection closed", "connection closed", "connection already closed"}, rec.errors)

	require.NoError(t, c.Free())
	assert.True(t, tr.released)
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.Equal(t, StatusInvalidClient, c.Read(TrimNone))
	assert.Equal(t, StatusInvalidClient, c.SendText("x", true))
	assert.Equal(t, StatusInvalidClient, c.SendBinary([]byte{1}, true))
	assert.Equal(t, StatusInvalidClient, c.SendPing(nil))
	assert.Equal(t, StatusInvalidClient, c.Flush())
	assert.Equal(t, StatusInvalidClient, c.Close())
	assert.NoError(t, c.Free())
}

func TestParseTrim(t *testing.T) {
	for _, s := range []string{"none", "start", "end", "both"} {
		tr, err := ParseTrim(s)
		require.NoError(t, err)
		assert.Equal(t, s, tr.String())
	}
	_, err := ParseTrim("middle")
	assert.Error(t, err)
}
