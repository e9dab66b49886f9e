package repository

import (
	"context"
	"courtbook/pkg/model"
	"time"
)

const (
	CollectionName = "Slots"
)

// Guard is the condition a stored slot must meet for a transition to apply.
type Guard struct {
	Status model.SlotStatus
	// HoldToken, when set, must equal the stored hold token.
	HoldToken string
	// ExpiredAt, when set, requires the stored hold to have expired at that instant.
	ExpiredAt time.Time
	// ValidAt, when set, requires the stored hold to still be valid at that instant.
	ValidAt time.Time
}

// State is the mutable part of a slot. A transition overwrites all of it.
type State struct {
	Status        model.SlotStatus
	HeldBy        string
	HoldToken     string
	HoldExpiresAt time.Time
	BookingID     string
	BookedBy      string
	UpdatedAt     time.Time
}

func StateOf(slot *model.Slot) State {
	return State{
		Status:        slot.Status,
		HeldBy:        slot.HeldBy,
		HoldToken:     slot.HoldToken,
		HoldExpiresAt: slot.HoldExpiresAt,
		BookingID:     slot.BookingID,
		BookedBy:      slot.BookedBy,
		UpdatedAt:     slot.UpdatedAt,
	}
}

func (g Guard) matches(slot *model.Slot) bool {
	if slot.Status != g.Status {
		return false
	}
	if g.HoldToken != "" && slot.HoldToken != g.HoldToken {
		return false
	}
	if !g.ExpiredAt.IsZero() && g.ExpiredAt.Before(slot.HoldExpiresAt) {
		return false
	}
	if !g.ValidAt.IsZero() && !g.ValidAt.Before(slot.HoldExpiresAt) {
		return false
	}
	return true
}

func (s State) apply(slot *model.Slot) {
	slot.Status = s.Status
	slot.HeldBy = s.HeldBy
	slot.HoldToken = s.HoldToken
	slot.HoldExpiresAt = s.HoldExpiresAt
	slot.BookingID = s.BookingID
	slot.BookedBy = s.BookedBy
	slot.UpdatedAt = s.UpdatedAt
}

type SlotRepository interface {
	// CreateMany inserts all slots or none of them.
	CreateMany(ctx context.Context, slots []*model.Slot) error
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	// FindByCourtDate returns the court's slots on date ordered by start time.
	FindByCourtDate(ctx context.Context, courtID, date string) ([]*model.Slot, error)
	FindExpiredHolds(ctx context.Context, now time.Time) ([]*model.Slot, error)
	// Transition atomically replaces the slot's state when guard holds and
	// returns the updated slot. It fails with ErrStatusMismatch otherwise.
	Transition(ctx context.Context, id string, guard Guard, next State) (*model.Slot, error)
}
