package repository

import (
	"context"
	slotserrors "courtbook/internal/slots/errors"
	"courtbook/pkg/model"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memorySlotRepository struct {
	mu    sync.RWMutex
	slots map[string]*model.Slot
}

func NewMemorySlotRepository() SlotRepository {
	return &memorySlotRepository{slots: make(map[string]*model.Slot)}
}

func (r *memorySlotRepository) CreateMany(_ context.Context, slots []*model.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range slots {
		if _, ok := r.slots[s.ID]; ok {
			return fmt.Errorf("%w: %s", slotserrors.ErrDuplicate, s.ID)
		}
	}
	for _, s := range slots {
		r.slots[s.ID] = s.Clone()
	}
	return nil
}

func (r *memorySlotRepository) FindByID(_ context.Context, id string) (*model.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slot, ok := r.slots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
	}
	return slot.Clone(), nil
}

func (r *memorySlotRepository) FindByCourtDate(_ context.Context, courtID, date string) ([]*model.Slot, error) {
	r.mu.RLock()
	result := []*model.Slot{}
	for _, s := range r.slots {
		if s.CourtID == courtID && s.Date == date {
			result = append(result, s.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

func (r *memorySlotRepository) FindExpiredHolds(_ context.Context, now time.Time) ([]*model.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*model.Slot{}
	for _, s := range r.slots {
		if s.HoldExpired(now) {
			result = append(result, s.Clone())
		}
	}
	return result, nil
}

func (r *memorySlotRepository) Transition(_ context.Context, id string, guard Guard, next State) (*model.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
	}
	if !guard.matches(slot) {
		return nil, fmt.Errorf("%w: %s is %s", slotserrors.ErrStatusMismatch, id, slot.Status)
	}
	next.apply(slot)
	return slot.Clone(), nil
}
