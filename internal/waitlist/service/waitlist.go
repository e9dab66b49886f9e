package service

import (
	"context"
	waitlisterrors "courtbook/internal/waitlist/errors"
	"courtbook/internal/waitlist/repository"
	"courtbook/pkg/config"
	apperrors "courtbook/pkg/errors"
	"courtbook/pkg/locks"
	"courtbook/pkg/model"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SlotReader is the part of the slot ledger the queue needs.
type SlotReader interface {
	GetSlot(ctx context.Context, id string) (*model.Slot, error)
}

type WaitlistService interface {
	Join(ctx context.Context, actor model.Actor, slotID string, requestedAt time.Time) (*model.WaitingListEntry, error)
	Leave(ctx context.Context, actor model.Actor, entryID string) error
	PeekHead(ctx context.Context, slotID string) (*model.WaitingListEntry, error)
	PositionOf(ctx context.Context, entryID string) (int, error)
	GetByID(ctx context.Context, entryID string) (*model.WaitingListEntry, error)
	List(ctx context.Context, slotID string) ([]*model.WaitingListEntry, error)
	ListByUser(ctx context.Context, userID string) ([]*model.WaitingListEntry, error)
	// ListAll pages through every slot's queue for the admin dashboard.
	ListAll(ctx context.Context, limit int, offset int64) ([]*model.WaitingListEntry, int64, error)

	// RemoveLocked and RestoreLocked are for callers that already hold the
	// slot's waiting list lock.
	RemoveLocked(ctx context.Context, entryID string) (*model.WaitingListEntry, error)
	RestoreLocked(ctx context.Context, entry *model.WaitingListEntry) error
}

type waitlistService struct {
	repo  repository.WaitlistRepository
	slots SlotReader
	locks *locks.Manager
	cfg   *config.Config
}

func NewWaitlistService(
	repo repository.WaitlistRepository,
	slots SlotReader,
	lockManager *locks.Manager,
	cfg *config.Config,
) WaitlistService {
	return &waitlistService{
		repo:  repo,
		slots: slots,
		locks: lockManager,
		cfg:   cfg,
	}
}

// Join appends the actor to the slot's queue. A zero requestedAt means now.
// An earlier requestedAt than the current tail is raised to the tail's so the
// queue stays ordered by request time.
func (s *waitlistService) Join(ctx context.Context, actor model.Actor, slotID string, requestedAt time.Time) (*model.WaitingListEntry, error) {
	if slotID == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	lease, err := s.locks.Acquire(ctx, locks.WaitlistKey(slotID))
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	slot, err := s.slots.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.Status == model.SlotAvailable {
		return nil, apperrors.SlotNotFull(slotID)
	}
	if slot.HeldBy == actor.UserID || slot.BookedBy == actor.UserID {
		return nil, apperrors.Conflict("you already hold or booked this slot")
	}
	if !slot.EndTime.After(s.cfg.Clock()) {
		return nil, apperrors.SlotUnavailable(slotID, "slot has already ended")
	}

	queue, err := s.repo.FindBySlot(ctx, slotID)
	if err != nil {
		return nil, s.internal(err, "list", slotID)
	}
	for _, e := range queue {
		if e.UserID == actor.UserID {
			return nil, apperrors.AlreadyQueued(slotID, actor.UserID)
		}
	}

	if requestedAt.IsZero() {
		requestedAt = s.cfg.Clock()
	}
	entry := &model.WaitingListEntry{
		ID:          uuid.New().String(),
		SlotID:      slotID,
		UserID:      actor.UserID,
		RequestedAt: requestedAt.UTC(),
		Position:    len(queue) + 1,
	}
	if n := len(queue); n > 0 {
		tail := queue[n-1]
		if entry.RequestedAt.Before(tail.RequestedAt) {
			entry.RequestedAt = tail.RequestedAt
		}
		entry.Seq = tail.Seq + 1
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		if errors.Is(err, waitlisterrors.ErrAlreadyQueued) {
			return nil, apperrors.AlreadyQueued(slotID, actor.UserID)
		}
		return nil, s.internal(err, "join", slotID)
	}

	s.cfg.Log.Info("Joined waiting list",
		"entry_id", entry.ID,
		"slot_id", slotID,
		"user_id", actor.UserID,
		"position", entry.Position,
	)
	return entry, nil
}

// Leave removes an entry; only its owner or an admin may do so.
func (s *waitlistService) Leave(ctx context.Context, actor model.Actor, entryID string) error {
	entry, err := s.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.UserID != actor.UserID && !actor.IsAdmin() {
		return apperrors.Forbidden("only the queued user or an admin can leave the waiting list")
	}

	lease, err := s.locks.Acquire(ctx, locks.WaitlistKey(entry.SlotID))
	if err != nil {
		return err
	}
	defer lease.Release()

	removed, err := s.RemoveLocked(ctx, entryID)
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Left waiting list",
		"entry_id", entryID,
		"slot_id", removed.SlotID,
		"user_id", removed.UserID,
		"actor", actor.UserID,
	)
	return nil
}

// PeekHead returns the first entry of the slot's queue, or nil when the queue
// is empty.
func (s *waitlistService) PeekHead(ctx context.Context, slotID string) (*model.WaitingListEntry, error) {
	queue, err := s.List(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return nil, nil
	}
	return queue[0], nil
}

func (s *waitlistService) PositionOf(ctx context.Context, entryID string) (int, error) {
	entry, err := s.GetByID(ctx, entryID)
	if err != nil {
		return 0, err
	}
	return entry.Position, nil
}

func (s *waitlistService) GetByID(ctx context.Context, entryID string) (*model.WaitingListEntry, error) {
	if entryID == "" {
		return nil, apperrors.InvalidInput("Waiting list entry ID cannot be empty")
	}
	entry, err := s.repo.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, waitlisterrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Waiting list entry", entryID)
		}
		return nil, s.internal(err, "get", entryID)
	}
	return entry, nil
}

func (s *waitlistService) List(ctx context.Context, slotID string) ([]*model.WaitingListEntry, error) {
	queue, err := s.repo.FindBySlot(ctx, slotID)
	if err != nil {
		return nil, s.internal(err, "list", slotID)
	}
	return queue, nil
}

func (s *waitlistService) ListByUser(ctx context.Context, userID string) ([]*model.WaitingListEntry, error) {
	entries, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, s.internal(err, "list user", userID)
	}
	return entries, nil
}

func (s *waitlistService) ListAll(ctx context.Context, limit int, offset int64) ([]*model.WaitingListEntry, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	total, err := s.repo.CountAll(ctx)
	if err != nil {
		return nil, 0, s.internal(err, "count", "all")
	}
	entries, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, s.internal(err, "list", "all")
	}
	return entries, total, nil
}

func (s *waitlistService) RemoveLocked(ctx context.Context, entryID string) (*model.WaitingListEntry, error) {
	removed, err := s.repo.Remove(ctx, entryID)
	if err != nil {
		if errors.Is(err, waitlisterrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Waiting list entry", entryID)
		}
		return nil, s.internal(err, "remove", entryID)
	}
	return removed, nil
}

// RestoreLocked puts a removed entry back at its old position.
func (s *waitlistService) RestoreLocked(ctx context.Context, entry *model.WaitingListEntry) error {
	if err := s.repo.Insert(ctx, entry.Clone()); err != nil {
		return s.internal(err, "restore", entry.ID)
	}
	return nil
}

func (s *waitlistService) internal(err error, op, id string) error {
	s.cfg.Log.Error("Waiting list repository failure",
		"operation", op,
		"id", id,
		"error", err,
	)
	return apperrors.Internal("Failed to "+op+" waiting list", err)
}
