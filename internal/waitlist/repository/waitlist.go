package repository

import (
	"context"
	"courtbook/pkg/model"
)

const (
	CollectionName = "Waiting_list_entries"
)

// WaitlistRepository stores one FIFO queue per slot. Positions are 1-based
// and dense; Insert and Remove keep them that way.
type WaitlistRepository interface {
	// Insert places entry at entry.Position, moving every entry at or behind
	// that position back by one.
	Insert(ctx context.Context, entry *model.WaitingListEntry) error
	// Remove deletes the entry and moves every entry behind it up by one.
	Remove(ctx context.Context, id string) (*model.WaitingListEntry, error)
	FindByID(ctx context.Context, id string) (*model.WaitingListEntry, error)
	// FindBySlot returns the slot's queue ordered by position.
	FindBySlot(ctx context.Context, slotID string) ([]*model.WaitingListEntry, error)
	FindByUser(ctx context.Context, userID string) ([]*model.WaitingListEntry, error)
	// FindAll pages through every queue, grouped by slot and ordered by
	// position within each.
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.WaitingListEntry, error)
	CountAll(ctx context.Context) (int64, error)
}
