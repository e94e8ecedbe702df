package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLock(t *testing.T) (*Lock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewLock(rdb), mr
}

func TestLockAcquireRelease(t *testing.T) {
	lock, _ := newTestLock(t)
	ctx := context.Background()

	lease, err := lock.Acquire(ctx, "2026-01-05")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if _, err := lock.Acquire(ctx, "2026-01-05"); !errors.Is(err, ErrLockHeld) {
		t.Errorf("second acquire err = %v, want ErrLockHeld", err)
	}

	// A different date is an independent lock.
	other, err := lock.Acquire(ctx, "2026-01-06")
	if err != nil {
		t.Errorf("other date acquire: %v", err)
	}
	other.Release(ctx)

	lease.Release(ctx)
	reacquired, err := lock.Acquire(ctx, "2026-01-05")
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	reacquired.Release(ctx)
}

func TestLockExpires(t *testing.T) {
	lock, mr := newTestLock(t)
	ctx := context.Background()

	if _, err := lock.Acquire(ctx, "2026-01-05"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	mr.FastForward(lockTTL * 2)

	lease, err := lock.Acquire(ctx, "2026-01-05")
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
	lease.Release(ctx)
}

func TestReleaseOnlyOwnLease(t *testing.T) {
	lock, mr := newTestLock(t)
	ctx := context.Background()

	stale, err := lock.Acquire(ctx, "2026-01-05")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	mr.FastForward(lockTTL * 2)

	fresh, err := lock.Acquire(ctx, "2026-01-05")
	if err != nil {
		t.Fatalf("fresh acquire: %v", err)
	}

	// The stale lease expired and the key now belongs to fresh; releasing
	// the stale lease must not free it.
	stale.Release(ctx)
	if _, err := lock.Acquire(ctx, "2026-01-05"); !errors.Is(err, ErrLockHeld) {
		t.Errorf("err = %v, want ErrLockHeld", err)
	}
	fresh.Release(ctx)
}

func TestLeaseHeld(t *testing.T) {
	lock, mr := newTestLock(t)
	ctx := context.Background()

	lease, err := lock.Acquire(ctx, "2026-01-05")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if held, err := lease.Held(ctx); err != nil || !held {
		t.Fatalf("Held = %v, %v, want true", held, err)
	}

	mr.FastForward(lockTTL * 2)
	if held, err := lease.Held(ctx); err != nil || held {
		t.Errorf("Held after expiry = %v, %v, want false", held, err)
	}

	// The key now belongs to a fresh acquirer; the stale lease stays lost.
	fresh, err := lock.Acquire(ctx, "2026-01-05")
	if err != nil {
		t.Fatalf("fresh acquire: %v", err)
	}
	if held, err := lease.Held(ctx); err != nil || held {
		t.Errorf("stale Held = %v, %v, want false", held, err)
	}
	if held, err := fresh.Held(ctx); err != nil || !held {
		t.Errorf("fresh Held = %v, %v, want true", held, err)
	}
	fresh.Release(ctx)
}

func TestReleaseNilLease(t *testing.T) {
	var lease *Lease
	lease.Release(context.Background())
}
