package repository

import (
	"context"
	waitlisterrors "courtbook/internal/waitlist/errors"
	"courtbook/pkg/model"
	"fmt"
	"sort"
	"sync"
)

type memoryWaitlistRepository struct {
	mu     sync.RWMutex
	queues map[string][]*model.WaitingListEntry
	index  map[string]string
}

func NewMemoryWaitlistRepository() WaitlistRepository {
	return &memoryWaitlistRepository{
		queues: make(map[string][]*model.WaitingListEntry),
		index:  make(map[string]string),
	}
}

func (r *memoryWaitlistRepository) Insert(_ context.Context, entry *model.WaitingListEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	queue := r.queues[entry.SlotID]
	for _, e := range queue {
		if e.UserID == entry.UserID {
			return fmt.Errorf("%w: %s on %s", waitlisterrors.ErrAlreadyQueued, entry.UserID, entry.SlotID)
		}
	}

	at := entry.Position - 1
	if at < 0 {
		at = 0
	}
	if at > len(queue) {
		at = len(queue)
	}

	stored := entry.Clone()
	queue = append(queue, nil)
	copy(queue[at+1:], queue[at:])
	queue[at] = stored
	renumber(queue)

	r.queues[entry.SlotID] = queue
	r.index[entry.ID] = entry.SlotID
	entry.Position = stored.Position
	return nil
}

func (r *memoryWaitlistRepository) Remove(_ context.Context, id string) (*model.WaitingListEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slotID, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", waitlisterrors.ErrNotFound, id)
	}

	queue := r.queues[slotID]
	for i, e := range queue {
		if e.ID != id {
			continue
		}
		queue = append(queue[:i], queue[i+1:]...)
		renumber(queue)
		if len(queue) == 0 {
			delete(r.queues, slotID)
		} else {
			r.queues[slotID] = queue
		}
		delete(r.index, id)
		return e.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s", waitlisterrors.ErrNotFound, id)
}

func (r *memoryWaitlistRepository) FindByID(_ context.Context, id string) (*model.WaitingListEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slotID, ok := r.index[id]
	if ok {
		for _, e := range r.queues[slotID] {
			if e.ID == id {
				return e.Clone(), nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", waitlisterrors.ErrNotFound, id)
}

func (r *memoryWaitlistRepository) FindBySlot(_ context.Context, slotID string) ([]*model.WaitingListEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	queue := r.queues[slotID]
	result := make([]*model.WaitingListEntry, len(queue))
	for i, e := range queue {
		result[i] = e.Clone()
	}
	return result, nil
}

func (r *memoryWaitlistRepository) FindByUser(_ context.Context, userID string) ([]*model.WaitingListEntry, error) {
	r.mu.RLock()
	result := []*model.WaitingListEntry{}
	for _, queue := range r.queues {
		for _, e := range queue {
			if e.UserID == userID {
				result = append(result, e.Clone())
			}
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].RequestedAt.Before(result[j].RequestedAt)
	})
	return result, nil
}

func (r *memoryWaitlistRepository) FindAll(_ context.Context, limit int, offset int64) ([]*model.WaitingListEntry, error) {
	r.mu.RLock()
	slotIDs := make([]string, 0, len(r.queues))
	for slotID := range r.queues {
		slotIDs = append(slotIDs, slotID)
	}
	sort.Strings(slotIDs)

	result := []*model.WaitingListEntry{}
	for _, slotID := range slotIDs {
		for _, e := range r.queues[slotID] {
			result = append(result, e.Clone())
		}
	}
	r.mu.RUnlock()

	if offset >= int64(len(result)) {
		return []*model.WaitingListEntry{}, nil
	}
	end := min(offset+int64(limit), int64(len(result)))
	return result[offset:end], nil
}

func (r *memoryWaitlistRepository) CountAll(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.index)), nil
}

func renumber(queue []*model.WaitingListEntry) {
	for i, e := range queue {
		e.Position = i + 1
	}
}
