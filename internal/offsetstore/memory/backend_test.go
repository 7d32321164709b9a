package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/gezibash/netbridge/internal/offsetstore"
)

func TestRegisteredAsMemory(t *testing.T) {
	ctx := context.Background()
	s, err := offsetstore.New(ctx, "memory", nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if _, err := s.Load(ctx, "bot"); !errors.Is(err, offsetstore.ErrNotFound) {
		t.Fatalf("Load(missing) = %v, want ErrNotFound", err)
	}
	if err := s.Save(ctx, "bot", 5); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Load(ctx, "bot"); got != 5 {
		t.Errorf("Load = %d, want 5", got)
	}
}

func TestNilConfig(t *testing.T) {
	s, err := NewFactory(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewFactory(nil): %v", err)
	}
	s.Close()
}
