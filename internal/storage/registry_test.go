package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gezibash/netbridge/internal/observability"
)

type fakeBackend struct {
	config map[string]string
}

func newTestRegistry() *Registry[*fakeBackend] {
	r := NewRegistry[*fakeBackend]("test")
	r.Register("alpha", func(_ context.Context, cfg map[string]string) (*fakeBackend, error) {
		return &fakeBackend{config: cfg}, nil
	}, func() map[string]string {
		return map[string]string{"path": "/tmp/alpha", "mode": "0700"}
	})
	r.Register("broken", func(_ context.Context, cfg map[string]string) (*fakeBackend, error) {
		_, err := GetInt(cfg, "size", 0)
		return nil, err
	}, nil)
	return r
}

func TestRegistryList(t *testing.T) {
	r := newTestRegistry()

	got := r.List()
	if len(got) != 2 || got[0] != "alpha" || got[1] != "broken" {
		t.Errorf("List = %v", got)
	}
	if !r.IsRegistered("alpha") || r.IsRegistered("gamma") {
		t.Error("IsRegistered mismatch")
	}
	if r.Defaults("broken") != nil {
		t.Error("expected nil defaults")
	}
	if r.Defaults("alpha")["mode"] != "0700" {
		t.Error("expected alpha defaults")
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	r := newTestRegistry()
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r.Register("alpha", nil, nil)
}

func TestRegistryNewMergesDefaults(t *testing.T) {
	r := newTestRegistry()

	b, err := r.New(context.Background(), "alpha", map[string]string{"path": "/data"}, observability.NewMetrics())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.config["path"] != "/data" {
		t.Errorf("path = %q, want override", b.config["path"])
	}
	if b.config["mode"] != "0700" {
		t.Errorf("mode = %q, want default", b.config["mode"])
	}
}

func TestRegistryNewUnknown(t *testing.T) {
	r := newTestRegistry()

	_, err := r.New(context.Background(), "gamma", nil, nil)
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if !strings.Contains(err.Error(), "alpha") {
		t.Errorf("error should list available backends: %v", err)
	}
}

func TestRegistryNewStampsBackend(t *testing.T) {
	r := newTestRegistry()

	_, err := r.New(context.Background(), "broken", map[string]string{"size": "big"}, nil)
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if ce.Backend != "broken" {
		t.Errorf("Backend = %q, want broken", ce.Backend)
	}
}
