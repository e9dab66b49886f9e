package locks

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	owner     string
	expiresAt time.Time
}

// MemoryLocker is an in-process Locker. Expired entries are taken over on the
// next TryAcquire.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryEntry
	now   func() time.Time
}

func NewMemoryLocker(now func() time.Time) *MemoryLocker {
	if now == nil {
		now = time.Now
	}
	return &MemoryLocker{
		locks: make(map[string]memoryEntry),
		now:   now,
	}
}

func (l *MemoryLocker) TryAcquire(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, held := l.locks[key]; held && entry.owner != owner && now.Before(entry.expiresAt) {
		return false, nil
	}

	l.locks[key] = memoryEntry{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

func (l *MemoryLocker) Release(_ context.Context, key, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, held := l.locks[key]
	if !held || entry.owner != owner {
		return ErrNotHeld
	}
	delete(l.locks, key)
	return nil
}
