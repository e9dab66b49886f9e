package service

import (
	"context"
	slotserrors "courtbook/internal/slots/errors"
	"courtbook/internal/slots/repository"
	"courtbook/internal/slots/validator"
	"courtbook/pkg/config"
	apperrors "courtbook/pkg/errors"
	"courtbook/pkg/locks"
	"courtbook/pkg/model"
	"courtbook/pkg/sanitizer"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CourtReader is the part of the court catalogue slot definition needs.
type CourtReader interface {
	GetByID(ctx context.Context, id string) (*model.Court, error)
}

type SlotService interface {
	ListSlots(ctx context.Context, courtID, date string) ([]*model.Slot, error)
	GetSlot(ctx context.Context, id string) (*model.Slot, error)

	MarkHeld(ctx context.Context, id string, hold model.SlotHold) (*model.Slot, error)
	MarkBooked(ctx context.Context, id string, hold model.SlotHold, bookingID string) (*model.Slot, error)
	MarkAvailable(ctx context.Context, id string) (*model.Slot, error)
	ReleaseHold(ctx context.Context, id, holdToken string) (*model.Slot, error)
	// Restore puts prev's state back on a slot currently in status from. It
	// undoes a transition during rollback.
	Restore(ctx context.Context, prev *model.Slot, from model.SlotStatus) error
	EvictExpiredHolds(ctx context.Context) (int, error)

	DefineSlots(ctx context.Context, actor model.Actor, courtID string, def *model.SlotDefinition) ([]*model.Slot, error)
	GenerateDay(ctx context.Context, actor model.Actor, courtID, date string) ([]*model.Slot, error)
}

type slotService struct {
	repo      repository.SlotRepository
	courts    CourtReader
	validator *validator.SlotValidator
	locks     *locks.Manager
	cfg       *config.Config
}

func NewSlotService(
	repo repository.SlotRepository,
	courts CourtReader,
	validator *validator.SlotValidator,
	lockManager *locks.Manager,
	cfg *config.Config,
) SlotService {
	return &slotService{
		repo:      repo,
		courts:    courts,
		validator: validator,
		locks:     lockManager,
		cfg:       cfg,
	}
}

func (s *slotService) ListSlots(ctx context.Context, courtID, date string) ([]*model.Slot, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, apperrors.InvalidInput("date must be in YYYY-MM-DD format, got: " + date)
	}

	slots, err := s.repo.FindByCourtDate(ctx, courtID, date)
	if err != nil {
		s.cfg.Log.Error("Failed to list slots",
			"court_id", courtID,
			"date", date,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to list slots", err)
	}

	now := s.cfg.Clock()
	for i, slot := range slots {
		if slot.HoldExpired(now) {
			if slots[i], err = s.evict(ctx, slot, now); err != nil {
				return nil, err
			}
		}
	}
	return slots, nil
}

func (s *slotService) GetSlot(ctx context.Context, id string) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "get", id)
	}

	now := s.cfg.Clock()
	if slot.HoldExpired(now) {
		return s.evict(ctx, slot, now)
	}
	return slot, nil
}

// evict returns an expired hold to available. Losing the race to another
// evictor or writer is fine; the current state is re-read.
func (s *slotService) evict(ctx context.Context, slot *model.Slot, now time.Time) (*model.Slot, error) {
	guard := repository.Guard{Status: model.SlotHeld, HoldToken: slot.HoldToken, ExpiredAt: now}
	updated, err := s.repo.Transition(ctx, slot.ID, guard, repository.State{Status: model.SlotAvailable, UpdatedAt: now})
	if err == nil {
		s.cfg.Log.Info("Expired hold released",
			"slot_id", slot.ID,
			"held_by", slot.HeldBy,
			"expired_at", slot.HoldExpiresAt,
		)
		return updated, nil
	}
	if !errors.Is(err, slotserrors.ErrStatusMismatch) {
		return nil, s.translate(err, "evict", slot.ID)
	}

	current, err := s.repo.FindByID(ctx, slot.ID)
	if err != nil {
		return nil, s.translate(err, "get", slot.ID)
	}
	return current, nil
}

func (s *slotService) EvictExpiredHolds(ctx context.Context) (int, error) {
	now := s.cfg.Clock()
	expired, err := s.repo.FindExpiredHolds(ctx, now)
	if err != nil {
		s.cfg.Log.Error("Failed to find expired holds", "error", err)
		return 0, apperrors.Internal("Failed to find expired holds", err)
	}

	evicted := 0
	for _, slot := range expired {
		updated, err := s.evict(ctx, slot, now)
		if err != nil {
			return evicted, err
		}
		if updated.Status == model.SlotAvailable {
			evicted++
		}
	}
	return evicted, nil
}

func (s *slotService) MarkHeld(ctx context.Context, id string, hold model.SlotHold) (*model.Slot, error) {
	next := repository.State{
		Status:        model.SlotHeld,
		HeldBy:        hold.UserID,
		HoldToken:     hold.Token,
		HoldExpiresAt: hold.ExpiresAt,
		UpdatedAt:     s.cfg.Clock(),
	}
	return s.transition(ctx, id, repository.Guard{Status: model.SlotAvailable}, next)
}

// MarkBooked moves a slot held under hold.Token to booked for hold.UserID.
// The hold must still be valid.
func (s *slotService) MarkBooked(ctx context.Context, id string, hold model.SlotHold, bookingID string) (*model.Slot, error) {
	now := s.cfg.Clock()
	guard := repository.Guard{Status: model.SlotHeld, HoldToken: hold.Token, ValidAt: now}
	next := repository.State{
		Status:    model.SlotBooked,
		BookingID: bookingID,
		BookedBy:  hold.UserID,
		UpdatedAt: now,
	}
	return s.transition(ctx, id, guard, next)
}

func (s *slotService) MarkAvailable(ctx context.Context, id string) (*model.Slot, error) {
	next := repository.State{Status: model.SlotAvailable, UpdatedAt: s.cfg.Clock()}
	return s.transition(ctx, id, repository.Guard{Status: model.SlotBooked}, next)
}

func (s *slotService) ReleaseHold(ctx context.Context, id, holdToken string) (*model.Slot, error) {
	next := repository.State{Status: model.SlotAvailable, UpdatedAt: s.cfg.Clock()}
	return s.transition(ctx, id, repository.Guard{Status: model.SlotHeld, HoldToken: holdToken}, next)
}

func (s *slotService) Restore(ctx context.Context, prev *model.Slot, from model.SlotStatus) error {
	next := repository.StateOf(prev)
	next.UpdatedAt = s.cfg.Clock()
	_, err := s.transition(ctx, prev.ID, repository.Guard{Status: from}, next)
	return err
}

func (s *slotService) transition(ctx context.Context, id string, guard repository.Guard, next repository.State) (*model.Slot, error) {
	slot, err := s.repo.Transition(ctx, id, guard, next)
	if err != nil {
		if errors.Is(err, slotserrors.ErrStatusMismatch) {
			return nil, apperrors.InvalidTransition("slot", id, string(guard.Status), string(next.Status))
		}
		return nil, s.translate(err, "transition", id)
	}

	s.cfg.Log.Info("Slot status changed",
		"slot_id", id,
		"from", guard.Status,
		"to", next.Status,
	)
	return slot, nil
}

func (s *slotService) translate(err error, op, id string) error {
	if errors.Is(err, slotserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Slot", id)
	}
	if apperrors.IsAppError(err) {
		return err
	}
	s.cfg.Log.Error("Slot repository failure",
		"operation", op,
		"slot_id", id,
		"error", err,
	)
	return apperrors.Internal("Failed to "+op+" slot", err)
}

func (s *slotService) DefineSlots(ctx context.Context, actor model.Actor, courtID string, def *model.SlotDefinition) ([]*model.Slot, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only admins can define slots")
	}

	def.Date = strings.TrimSpace(def.Date)
	for i := range def.Ranges {
		def.Ranges[i].Start = sanitizer.NormalizeClock(def.Ranges[i].Start)
		def.Ranges[i].End = sanitizer.NormalizeClock(def.Ranges[i].End)
	}

	if err := s.validator.Validate(def); err != nil {
		s.cfg.Log.Warn("Slot definition validation failed",
			"court_id", courtID,
			"date", def.Date,
			"error", err,
		)
		return nil, apperrors.Validation("Slot definition validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	return s.define(ctx, actor, courtID, def, false)
}

// GenerateDay opens the default daily slots on date. Ranges that clash with
// existing slots are skipped, and generation stops at the court's capacity.
func (s *slotService) GenerateDay(ctx context.Context, actor model.Actor, courtID, date string) ([]*model.Slot, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only admins can define slots")
	}

	def := &model.SlotDefinition{Date: date}
	for _, hour := range s.cfg.SlotStartHours {
		start := time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC)
		end := start.Add(s.cfg.SlotDuration)
		if end.Day() != start.Day() {
			continue
		}
		def.Ranges = append(def.Ranges, model.TimeRange{
			Start: start.Format(model.ClockLayout),
			End:   end.Format(model.ClockLayout),
		})
	}

	if err := s.validator.Validate(def); err != nil {
		return nil, apperrors.Validation("Slot generation failed", map[string]any{
			"error": err.Error(),
		})
	}

	return s.define(ctx, actor, courtID, def, true)
}

func (s *slotService) define(ctx context.Context, actor model.Actor, courtID string, def *model.SlotDefinition, skipConflicts bool) ([]*model.Slot, error) {
	court, err := s.courts.GetByID(ctx, courtID)
	if err != nil {
		return nil, err
	}

	loc := s.cfg.Loc()
	day, err := time.ParseInLocation(model.DateLayout, def.Date, loc)
	if err != nil {
		return nil, apperrors.InvalidInput("date must be in YYYY-MM-DD format, got: " + def.Date)
	}

	lease, err := s.locks.Acquire(ctx, locks.CourtDayKey(courtID, def.Date))
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	existing, err := s.repo.FindByCourtDate(ctx, courtID, def.Date)
	if err != nil {
		return nil, s.translate(err, "list", courtID)
	}

	now := s.cfg.Clock()
	remaining := court.Capacity - len(existing)
	created := make([]*model.Slot, 0, len(def.Ranges))

	for _, rg := range def.Ranges {
		start := atClock(day, rg.Start, loc)
		end := atClock(day, rg.End, loc)

		if !start.After(now) {
			if skipConflicts {
				continue
			}
			return nil, apperrors.InvalidInput(fmt.Sprintf("slot %s-%s on %s has already started", rg.Start, rg.End, def.Date))
		}
		if clash := overlapping(existing, start, end); clash != nil {
			if skipConflicts {
				continue
			}
			return nil, apperrors.Conflict(fmt.Sprintf("slot %s-%s overlaps existing slot %s", rg.Start, rg.End, clash.ID))
		}
		if remaining <= 0 {
			if skipConflicts {
				break
			}
			return nil, apperrors.Validation("Court capacity exceeded", map[string]any{
				"capacity":  court.Capacity,
				"existing":  len(existing),
				"requested": len(def.Ranges),
			})
		}

		slot := &model.Slot{
			ID:        model.SlotID(courtID, start),
			CourtID:   courtID,
			Date:      def.Date,
			StartTime: start.UTC(),
			EndTime:   end.UTC(),
			Price:     court.PriceFor(end.Sub(start)),
			Status:    model.SlotAvailable,
			CreatedAt: now,
			UpdatedAt: now,
		}
		created = append(created, slot)
		remaining--
	}

	if len(created) == 0 {
		return created, nil
	}

	if err := s.repo.CreateMany(ctx, created); err != nil {
		if errors.Is(err, slotserrors.ErrDuplicate) {
			return nil, apperrors.Conflict("one or more slots already exist")
		}
		s.cfg.Log.Error("Failed to create slots",
			"court_id", courtID,
			"date", def.Date,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create slots", err)
	}

	s.cfg.Log.Info("Slots defined successfully",
		"court_id", courtID,
		"date", def.Date,
		"count", len(created),
		"actor", actor.UserID,
	)
	return created, nil
}

// atClock returns day at the "HH:MM" wall-clock time in loc.
func atClock(day time.Time, clock string, loc *time.Location) time.Time {
	t, _ := time.Parse(model.ClockLayout, clock)
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

func overlapping(slots []*model.Slot, start, end time.Time) *model.Slot {
	for _, s := range slots {
		if s.Overlaps(start, end) {
			return s
		}
	}
	return nil
}
