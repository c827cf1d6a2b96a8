package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisLocker_Exclusive(t *testing.T) {
	mr := miniredis.RunT(t)
	l, err := NewRedisLocker(mr.Addr(), "", "test:lock", time.Minute)
	if err != nil {
		t.Fatalf("new redis locker: %v", err)
	}
	ctx := context.Background()

	release, err := l.TryAcquire(ctx)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := l.TryAcquire(ctx); !errors.Is(err, ErrHeld) {
		t.Fatalf("second acquire should be held, got %v", err)
	}
	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists("test:lock") {
		t.Fatalf("key should be gone after release")
	}
	if _, err := l.TryAcquire(ctx); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestRedisLocker_StaleReleaseKeepsNewOwner(t *testing.T) {
	mr := miniredis.RunT(t)
	l, err := NewRedisLocker(mr.Addr(), "", "test:lock", time.Second)
	if err != nil {
		t.Fatalf("new redis locker: %v", err)
	}
	ctx := context.Background()

	stale, err := l.TryAcquire(ctx)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, err := l.TryAcquire(ctx); err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
	if err := stale(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if !mr.Exists("test:lock") {
		t.Fatalf("stale release must not delete the new owner's lease")
	}
}

func TestRedisLocker_RenewsLeaseWhileHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	l, err := NewRedisLocker(mr.Addr(), "", "test:lock", time.Second)
	if err != nil {
		t.Fatalf("new redis locker: %v", err)
	}
	l.refreshEvery = 10 * time.Millisecond
	ctx := context.Background()

	release, err := l.TryAcquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Run past the original TTL in two steps; renewal resets it in between.
	mr.FastForward(800 * time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for mr.TTL("test:lock") <= 500*time.Millisecond {
		if time.Now().After(deadline) {
			t.Fatalf("lease was not renewed, ttl=%v", mr.TTL("test:lock"))
		}
		time.Sleep(5 * time.Millisecond)
	}
	mr.FastForward(800 * time.Millisecond)
	if !mr.Exists("test:lock") {
		t.Fatalf("lease expired while still held")
	}
	if _, err := l.TryAcquire(ctx); !errors.Is(err, ErrHeld) {
		t.Fatalf("want ErrHeld while renewed, got %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists("test:lock") {
		t.Fatalf("key should be gone after release")
	}
	if err := release(ctx); err != nil {
		t.Fatalf("second release: %v", err)
	}
}

func TestRedisLocker_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	l, err := NewRedisLocker(mr.Addr(), "", "test:lock", time.Second)
	if err != nil {
		t.Fatalf("new redis locker: %v", err)
	}
	mr.Close()
	if _, err := l.TryAcquire(context.Background()); err == nil || errors.Is(err, ErrHeld) {
		t.Fatalf("want connection error, got %v", err)
	}
}

func TestNewRedisLocker_RequiresAddr(t *testing.T) {
	if l, err := NewRedisLocker("", "", "k", time.Second); err == nil || l != nil {
		t.Fatalf("expected constructor error for empty redis addr")
	}
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, err := l.TryAcquire(ctx)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := l.TryAcquire(ctx); !errors.Is(err, ErrHeld) {
		t.Fatalf("want ErrHeld, got %v", err)
	}
	_ = release(ctx)
	_ = release(ctx)
	if _, err := l.TryAcquire(ctx); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}
