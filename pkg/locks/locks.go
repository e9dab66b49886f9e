// Package locks serialises work on a single slot (or a slot's waiting list)
// across goroutines and, with the Redis or Mongo backends, across processes.
package locks

import (
	"context"
	apperrors "courtbook/pkg/errors"
	"courtbook/pkg/logger"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotHeld = errors.New("lock not held by owner")

// Locker is a keyed try-lock. TryAcquire never blocks waiting for a holder;
// it reports false when another owner holds an unexpired lock on key.
type Locker interface {
	TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

func SlotKey(slotID string) string {
	return "slot:" + slotID
}

func WaitlistKey(slotID string) string {
	return "waitlist:" + slotID
}

// CourtDayKey guards slot definition for one court and date.
func CourtDayKey(courtID, date string) string {
	return "court:" + courtID + ":" + date
}

type Options struct {
	TTL           time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

type Manager struct {
	locker Locker
	opts   Options
	log    *logger.Logger
}

func NewManager(locker Locker, opts Options, log *logger.Logger) *Manager {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	return &Manager{locker: locker, opts: opts, log: log}
}

type Lease struct {
	Key   string
	owner string
	m     *Manager
}

// Acquire takes the lock on key, retrying up to RetryAttempts times with
// RetryDelay between attempts. It gives up with a ConcurrencyConflict error,
// or a Timeout error if ctx ends first.
func (m *Manager) Acquire(ctx context.Context, key string) (*Lease, error) {
	owner := uuid.New().String()

	for attempt := 1; ; attempt++ {
		ok, err := m.locker.TryAcquire(ctx, key, owner, m.opts.TTL)
		if err != nil {
			m.log.Error("Failed to acquire lock", "key", key, "error", err)
			return nil, apperrors.Unavailable("lock backend")
		}
		if ok {
			return &Lease{Key: key, owner: owner, m: m}, nil
		}
		if attempt >= m.opts.RetryAttempts {
			m.log.Warn("Lock still held after retries", "key", key, "attempts", attempt)
			return nil, apperrors.ConcurrencyConflict(key)
		}

		select {
		case <-ctx.Done():
			return nil, apperrors.Timeout("timed out waiting for lock on " + key)
		case <-time.After(m.opts.RetryDelay):
		}
	}
}

// AcquireAll takes locks in the given order and releases the ones already
// held if any acquisition fails. Callers must pass keys in a fixed global
// order (slot before waiting list) to stay deadlock free.
func (m *Manager) AcquireAll(ctx context.Context, keys ...string) ([]*Lease, error) {
	leases := make([]*Lease, 0, len(keys))
	for _, key := range keys {
		lease, err := m.Acquire(ctx, key)
		if err != nil {
			ReleaseAll(leases)
			return nil, err
		}
		leases = append(leases, lease)
	}
	return leases, nil
}

// Release frees the lease. It uses a fresh context so a cancelled request
// still unlocks.
func (l *Lease) Release() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.m.locker.Release(ctx, l.Key, l.owner); err != nil && !errors.Is(err, ErrNotHeld) {
		l.m.log.Error("Failed to release lock", "key", l.Key, "error", err)
	}
}

// ReleaseAll releases leases in reverse acquisition order.
func ReleaseAll(leases []*Lease) {
	for i := len(leases) - 1; i >= 0; i-- {
		leases[i].Release()
	}
}
