package suspend

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newTestStore runs an in-process Redis and returns a Store backed by it.
func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewStore(client), mr
}

func TestIsSuspended_NotSuspended(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	suspended, remaining, reason, err := store.IsSuspended(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if suspended {
		t.Errorf("expected not suspended, got suspended (remaining=%d reason=%q)", remaining, reason)
	}
}

func TestSuspendAndCheck(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Suspend(ctx, "u1", 30*time.Second, ReasonOffPlatform); err != nil {
		t.Fatalf("Suspend() error: %v", err)
	}

	suspended, remaining, reason, err := store.IsSuspended(ctx, "u1")
	if err != nil {
		t.Fatalf("IsSuspended() error: %v", err)
	}
	if !suspended {
		t.Fatal("expected suspended=true")
	}
	if reason != ReasonOffPlatform {
		t.Errorf("reason = %q, want %q", reason, ReasonOffPlatform)
	}
	if remaining <= 0 || remaining > 30 {
		t.Errorf("remaining = %d, want in (0, 30]", remaining)
	}
}

func TestLift(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Suspend(ctx, "u1", time.Minute, ReasonOffPlatform); err != nil {
		t.Fatalf("Suspend() error: %v", err)
	}
	if err := store.Lift(ctx, "u1"); err != nil {
		t.Fatalf("Lift() error: %v", err)
	}

	suspended, _, _, err := store.IsSuspended(ctx, "u1")
	if err != nil {
		t.Fatalf("IsSuspended() error: %v", err)
	}
	if suspended {
		t.Error("expected suspension to be lifted")
	}
}

func TestSuspensionExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Suspend(ctx, "u1", 10*time.Second, ReasonOffPlatform); err != nil {
		t.Fatalf("Suspend() error: %v", err)
	}

	mr.FastForward(11 * time.Second)

	suspended, _, _, err := store.IsSuspended(ctx, "u1")
	if err != nil {
		t.Fatalf("IsSuspended() error: %v", err)
	}
	if suspended {
		t.Error("expected suspension to expire after TTL")
	}
}

func TestFlagAndCheck_BelowThreshold(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 1; i < AutoSuspendThreshold; i++ {
		suspended, _, err := store.FlagAndCheck(ctx, "u1")
		if err != nil {
			t.Fatalf("FlagAndCheck() #%d error: %v", i, err)
		}
		if suspended {
			t.Fatalf("flag #%d: suspended before threshold", i)
		}
	}

	count, err := store.FlagCount(ctx, "u1")
	if err != nil {
		t.Fatalf("FlagCount() error: %v", err)
	}
	if count != AutoSuspendThreshold-1 {
		t.Errorf("FlagCount() = %d, want %d", count, AutoSuspendThreshold-1)
	}
}

func TestFlagAndCheck_ThresholdSuspends(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var suspended bool
	var duration time.Duration
	var err error
	for i := 0; i < AutoSuspendThreshold; i++ {
		suspended, duration, err = store.FlagAndCheck(ctx, "u1")
		if err != nil {
			t.Fatalf("FlagAndCheck() error: %v", err)
		}
	}

	if !suspended {
		t.Fatal("expected auto-suspension at threshold")
	}
	if duration != Suspend24Hour {
		t.Errorf("duration = %v, want %v", duration, Suspend24Hour)
	}

	isSuspended, _, reason, err := store.IsSuspended(ctx, "u1")
	if err != nil {
		t.Fatalf("IsSuspended() error: %v", err)
	}
	if !isSuspended {
		t.Error("expected IsSuspended to report the auto-suspension")
	}
	if reason != ReasonOffPlatform {
		t.Errorf("reason = %q, want %q", reason, ReasonOffPlatform)
	}
}

func TestFlagCounterExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.FlagAndCheck(ctx, "u1"); err != nil {
		t.Fatalf("FlagAndCheck() error: %v", err)
	}

	mr.FastForward(FlagsTTL + time.Second)

	count, err := store.FlagCount(ctx, "u1")
	if err != nil {
		t.Fatalf("FlagCount() error: %v", err)
	}
	if count != 0 {
		t.Errorf("FlagCount() after TTL = %d, want 0", count)
	}
}

func TestEscalate_Durations(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	want := []time.Duration{Suspend15Min, Suspend1Hour, Suspend24Hour, Suspend24Hour}
	for i, expected := range want {
		got, err := store.Escalate(ctx, "u1", ReasonOffPlatform)
		if err != nil {
			t.Fatalf("Escalate() #%d error: %v", i+1, err)
		}
		if got != expected {
			t.Errorf("Escalate() #%d duration = %v, want %v", i+1, got, expected)
		}
	}
}
