package locks

import (
	"context"
	apperrors "courtbook/pkg/errors"
	"courtbook/pkg/logger"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type failingLocker struct{}

func (failingLocker) TryAcquire(context.Context, string, string, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func (failingLocker) Release(context.Context, string, string) error {
	return nil
}

func TestMemoryLocker_ExclusiveUntilReleased(t *testing.T) {
	l := NewMemoryLocker(nil)
	ctx := context.Background()

	ok, err := l.TryAcquire(ctx, "slot:a", "owner-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, got ok=%v err=%v", ok, err)
	}

	ok, _ = l.TryAcquire(ctx, "slot:a", "owner-2", time.Minute)
	if ok {
		t.Fatal("expected second owner to be refused")
	}

	if err := l.Release(ctx, "slot:a", "owner-2"); !errors.Is(err, ErrNotHeld) {
		t.Errorf("expected ErrNotHeld releasing someone else's lock, got %v", err)
	}
	if err := l.Release(ctx, "slot:a", "owner-1"); err != nil {
		t.Fatalf("unexpected release error: %v", err)
	}

	ok, _ = l.TryAcquire(ctx, "slot:a", "owner-2", time.Minute)
	if !ok {
		t.Error("expected lock to be free after release")
	}
}

func TestMemoryLocker_ExpiredLockIsTakenOver(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	l := NewMemoryLocker(clock.Now)
	ctx := context.Background()

	_, _ = l.TryAcquire(ctx, "slot:a", "owner-1", 10*time.Second)
	clock.Advance(10 * time.Second)

	ok, _ := l.TryAcquire(ctx, "slot:a", "owner-2", 10*time.Second)
	if !ok {
		t.Error("expected expired lock to be taken over")
	}
}

func TestManager_AcquireRetriesThenConflicts(t *testing.T) {
	l := NewMemoryLocker(nil)
	m := NewManager(l, Options{TTL: time.Minute, RetryAttempts: 3, RetryDelay: time.Millisecond}, logger.Discard())

	_, _ = l.TryAcquire(context.Background(), "slot:a", "someone-else", time.Minute)

	_, err := m.Acquire(context.Background(), "slot:a")
	if !apperrors.HasCode(err, apperrors.CodeConcurrencyConflict) {
		t.Fatalf("expected concurrency conflict, got %v", err)
	}
}

func TestManager_AcquireWaitsForRelease(t *testing.T) {
	m := NewManager(NewMemoryLocker(nil), Options{TTL: time.Minute, RetryAttempts: 200, RetryDelay: time.Millisecond}, logger.Discard())

	first, err := m.Acquire(context.Background(), "slot:a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		lease, err := m.Acquire(context.Background(), "slot:a")
		if err == nil {
			lease.Release()
		}
		done <- err
	}()

	time.Sleep(5 * time.Millisecond)
	first.Release()

	if err := <-done; err != nil {
		t.Errorf("expected waiter to get the lock, got %v", err)
	}
}

func TestManager_BackendErrorIsUnavailable(t *testing.T) {
	m := NewManager(failingLocker{}, Options{TTL: time.Minute, RetryAttempts: 3}, logger.Discard())

	_, err := m.Acquire(context.Background(), "slot:a")
	if !apperrors.HasCode(err, apperrors.CodeUnavailable) {
		t.Errorf("expected unavailable error, got %v", err)
	}
}

func TestManager_AcquireAllReleasesOnFailure(t *testing.T) {
	l := NewMemoryLocker(nil)
	m := NewManager(l, Options{TTL: time.Minute, RetryAttempts: 1}, logger.Discard())

	_, _ = l.TryAcquire(context.Background(), WaitlistKey("a"), "someone-else", time.Minute)

	if _, err := m.AcquireAll(context.Background(), SlotKey("a"), WaitlistKey("a")); err == nil {
		t.Fatal("expected AcquireAll to fail")
	}

	ok, _ := l.TryAcquire(context.Background(), SlotKey("a"), "checker", time.Minute)
	if !ok {
		t.Error("expected slot lock to be released after partial failure")
	}
}

func TestManager_MutualExclusion(t *testing.T) {
	m := NewManager(NewMemoryLocker(nil), Options{TTL: time.Minute, RetryAttempts: 10000, RetryDelay: 50 * time.Microsecond}, logger.Discard())

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := m.Acquire(context.Background(), "slot:a")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(100 * time.Microsecond)
			atomic.AddInt32(&inside, -1)
			lease.Release()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("expected at most one holder at a time, saw %d", maxInside)
	}
}
