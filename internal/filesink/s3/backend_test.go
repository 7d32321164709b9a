package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// mockS3Server emulates the two calls the sink makes: HeadBucket and
// PutObject.
func mockS3Server(t *testing.T) (*httptest.Server, *mockStore) {
	t.Helper()
	store := &mockStore{objects: make(map[string][]byte)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.URL.Path, "/", 3)
		if len(parts) < 3 || parts[2] == "" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		data, _ := io.ReadAll(r.Body)
		store.put(parts[2], data)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, store
}

type mockStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *mockStore) put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
}

func (m *mockStore) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.objects[key]
	return d, ok
}

func newTestBackend(t *testing.T, endpoint string) *Backend {
	t.Helper()
	s, err := NewFactory(context.Background(), map[string]string{
		KeyBucket:          "downloads",
		KeyEndpoint:        endpoint,
		KeyPrefix:          "bot/",
		KeyForcePathStyle:  "true",
		KeyAccessKeyID:     "test",
		KeySecretAccessKey: "test",
	})
	if err != nil {
		t.Fatal(err)
	}
	return s.(*Backend)
}

func TestCommitUploads(t *testing.T) {
	srv, store := mockS3Server(t)
	b := newTestBackend(t, srv.URL)
	ctx := context.Background()

	w, err := b.Create(ctx, "../voice/note.oga")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte("abc"))
	loc, err := w.Commit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loc != "s3://downloads/bot/voice/note.oga" {
		t.Errorf("location = %q", loc)
	}
	data, ok := store.get("bot/voice/note.oga")
	if !ok || string(data) != "abc" {
		t.Errorf("stored = %q, %v", data, ok)
	}
}

func TestAbortSkipsUpload(t *testing.T) {
	srv, store := mockS3Server(t)
	b := newTestBackend(t, srv.URL)

	w, _ := b.Create(context.Background(), "x")
	_, _ = w.Write([]byte("abc"))
	_ = w.Abort()
	if _, ok := store.get("bot/x"); ok {
		t.Error("aborted object was uploaded")
	}
}

func TestBucketRequired(t *testing.T) {
	if _, err := NewFactory(context.Background(), map[string]string{}); err == nil {
		t.Fatal("expected error for missing bucket")
	}
}
