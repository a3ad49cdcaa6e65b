package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/rig-store/rig_ledger/internal/identity"
	"github.com/rig-store/rig_ledger/internal/logging"
)

func TestServiceProfileRoundTrip(t *testing.T) {
	svc := NewService(NewMemoryRepository(), logging.Discard())
	ctx := context.Background()
	alice := identity.TestPrincipal("alice")

	if _, ok, err := svc.Get(ctx, alice); err != nil || ok {
		t.Fatalf("expected no profile before save, ok=%v err=%v", ok, err)
	}

	if err := svc.SaveOwn(ctx, alice, Profile{Name: "Alice"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := svc.Get(ctx, alice)
	if err != nil || !ok {
		t.Fatalf("expected profile, ok=%v err=%v", ok, err)
	}
	if got.Name != "Alice" {
		t.Fatalf("expected name Alice, got %q", got.Name)
	}

	if err := svc.SaveOwn(ctx, alice, Profile{Name: ""}); err != nil {
		t.Fatalf("empty name must be accepted: %v", err)
	}
	if got, _, _ := svc.Get(ctx, alice); got.Name != "" {
		t.Fatalf("expected overwrite with empty name, got %q", got.Name)
	}
}

func TestServiceRejectsAnonymousSave(t *testing.T) {
	svc := NewService(NewMemoryRepository(), logging.Discard())
	ctx := context.Background()

	err := svc.SaveOwn(ctx, identity.Anonymous, Profile{Name: "ghost"})
	if !errors.Is(err, identity.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, ok, _ := svc.Get(ctx, identity.Anonymous); ok {
		t.Fatalf("anonymous save must not be stored")
	}
}
