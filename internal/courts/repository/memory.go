package repository

import (
	"context"
	courtserrors "courtbook/internal/courts/errors"
	"courtbook/pkg/model"
	"fmt"
	"sort"
	"sync"
)

type memoryCourtRepository struct {
	mu     sync.RWMutex
	courts map[string]*model.Court
}

func NewMemoryCourtRepository() CourtRepository {
	return &memoryCourtRepository{courts: make(map[string]*model.Court)}
}

func (r *memoryCourtRepository) Create(_ context.Context, court *model.Court) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(court.NameKey, "") {
		return fmt.Errorf("%w: %s", courtserrors.ErrDuplicateName, court.Name)
	}
	r.courts[court.ID] = court.Clone()
	return nil
}

func (r *memoryCourtRepository) FindByID(_ context.Context, id string) (*model.Court, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	court, ok := r.courts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", courtserrors.ErrNotFound, id)
	}
	return court.Clone(), nil
}

func (r *memoryCourtRepository) FindAll(_ context.Context, limit int, offset int64) ([]*model.Court, error) {
	r.mu.RLock()
	all := make([]*model.Court, 0, len(r.courts))
	for _, c := range r.courts {
		all = append(all, c.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].NameKey != all[j].NameKey {
			return all[i].NameKey < all[j].NameKey
		}
		return all[i].ID < all[j].ID
	})

	if offset >= int64(len(all)) {
		return []*model.Court{}, nil
	}
	end := int(offset) + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memoryCourtRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.courts)), nil
}

func (r *memoryCourtRepository) Update(_ context.Context, id string, court *model.Court) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.courts[id]; !ok {
		return fmt.Errorf("%w: %s", courtserrors.ErrNotFound, id)
	}
	if r.nameTaken(court.NameKey, id) {
		return fmt.Errorf("%w: %s", courtserrors.ErrDuplicateName, court.Name)
	}
	stored := court.Clone()
	stored.ID = id
	r.courts[id] = stored
	return nil
}

func (r *memoryCourtRepository) nameTaken(key, exceptID string) bool {
	for id, c := range r.courts {
		if id != exceptID && c.NameKey == key {
			return true
		}
	}
	return false
}
