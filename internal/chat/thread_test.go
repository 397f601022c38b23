package chat

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestThreadStore(t *testing.T) *ThreadStore {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewThreadStore(client)
}

func TestThreadCreateAndGet(t *testing.T) {
	store := newTestThreadStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "t1", "buyer1", "seller1", "p42"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	th, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if th == nil {
		t.Fatal("Get() returned nil for existing thread")
	}
	if th.Buyer != "buyer1" || th.Seller != "seller1" || th.ProductID != "p42" {
		t.Errorf("unexpected thread fields: %+v", th)
	}
	if th.Status != StatusActive {
		t.Errorf("Status = %q, want %q", th.Status, StatusActive)
	}
	if th.CreatedAt == 0 || th.LastActive == 0 {
		t.Errorf("timestamps not set: %+v", th)
	}
}

func TestThreadGetMissing(t *testing.T) {
	store := newTestThreadStore(t)

	th, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if th != nil {
		t.Errorf("expected nil for missing thread, got %+v", th)
	}
}

func TestThreadParticipants(t *testing.T) {
	th := &Thread{ThreadID: "t1", Buyer: "b", Seller: "s"}

	if !th.IsParticipant("b") || !th.IsParticipant("s") {
		t.Error("buyer and seller must be participants")
	}
	if th.IsParticipant("x") {
		t.Error("stranger must not be a participant")
	}
	if th.GetPartner("b") != "s" {
		t.Errorf("GetPartner(buyer) = %q, want seller", th.GetPartner("b"))
	}
	if th.GetPartner("s") != "b" {
		t.Errorf("GetPartner(seller) = %q, want buyer", th.GetPartner("s"))
	}
	if th.GetPartner("x") != "" {
		t.Errorf("GetPartner(stranger) = %q, want empty", th.GetPartner("x"))
	}
}

func TestThreadArchive(t *testing.T) {
	store := newTestThreadStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "t1", "b", "s", "p1"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := store.Archive(ctx, "t1"); err != nil {
		t.Fatalf("Archive() error: %v", err)
	}

	th, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if th.Status != StatusArchived {
		t.Errorf("Status = %q, want %q", th.Status, StatusArchived)
	}
}

func TestThreadDelete(t *testing.T) {
	store := newTestThreadStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "t1", "b", "s", "p1"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := store.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	th, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if th != nil {
		t.Errorf("expected nil after delete, got %+v", th)
	}
}
