package service

import (
	"context"
	bookingserrors "courtbook/internal/bookings/errors"
	"courtbook/internal/bookings/repository"
	"courtbook/internal/bookings/validator"
	"courtbook/pkg/config"
	apperrors "courtbook/pkg/errors"
	"courtbook/pkg/model"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const referenceAttempts = 3

// BookingService is the ledger of bookings. It records what the allocator
// decided and never deletes.
type BookingService interface {
	RecordBooking(ctx context.Context, booking *model.Booking) error
	RecordCancellation(ctx context.Context, id string) (*model.Booking, error)
	// RevertCancellation puts a booking cancelled by RecordCancellation back
	// to prev. It only runs while rolling back.
	RevertCancellation(ctx context.Context, prev *model.Booking) error
	RecordCompletion(ctx context.Context, id string) (*model.Booking, error)

	GetByID(ctx context.Context, id string) (*model.Booking, error)
	// GetByReference accepts references in any letter case.
	GetByReference(ctx context.Context, reference string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error)
	ListByCourt(ctx context.Context, courtID string, filter model.BookingFilter) ([]*model.Booking, error)
	// ActiveForSlot returns the slot's upcoming booking, or nil.
	ActiveForSlot(ctx context.Context, slotID string) (*model.Booking, error)
	ListEndedUpcoming(ctx context.Context, before time.Time) ([]*model.Booking, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	validator *validator.BookingValidator
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

// NewReference returns a booking reference such as BKNG3F9A1C07.
func NewReference() string {
	id := uuid.New()
	return "BKNG" + strings.ToUpper(fmt.Sprintf("%x", id[:4]))
}

// RecordBooking stores a new booking. Missing ID, reference and creation time
// are filled in; a reference collision is retried with a fresh one.
func (s *bookingService) RecordBooking(ctx context.Context, booking *model.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = s.cfg.Clock()
	}
	generated := booking.Reference == ""
	if generated {
		booking.Reference = NewReference()
	}

	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed",
			"booking_id", booking.ID,
			"slot_id", booking.SlotID,
			"error", err,
		)
		details := map[string]any{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, ve := range verrs {
				details[ve.Field] = ve.Message
			}
		} else {
			details["error"] = err.Error()
		}
		return apperrors.Validation("Booking validation failed", details)
	}

	var err error
	for attempt := 1; attempt <= referenceAttempts; attempt++ {
		err = s.repo.Create(ctx, booking)
		if !errors.Is(err, bookingserrors.ErrDuplicateReference) || !generated {
			break
		}
		booking.Reference = NewReference()
	}

	if err != nil {
		if errors.Is(err, bookingserrors.ErrActiveExists) {
			return apperrors.SlotUnavailable(booking.SlotID, "slot already has an upcoming booking")
		}
		if errors.Is(err, bookingserrors.ErrDuplicateReference) {
			return apperrors.Conflict("booking reference " + booking.Reference + " already used")
		}
		s.cfg.Log.Error("Failed to record booking",
			"booking_id", booking.ID,
			"slot_id", booking.SlotID,
			"error", err,
		)
		return apperrors.Internal("Failed to record booking", err)
	}

	s.cfg.Log.Info("Booking recorded",
		"booking_id", booking.ID,
		"reference", booking.Reference,
		"slot_id", booking.SlotID,
		"user_id", booking.UserID,
		"price", booking.Price,
		"promoted_from", booking.PromotedFrom,
	)
	return nil
}

func (s *bookingService) RecordCancellation(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingUpcoming {
		return nil, apperrors.NotCancellable(id, string(booking.Status))
	}

	booking.Status = model.BookingCancelled
	booking.PaymentStatus = model.PaymentRefunded
	booking.CancelledAt = s.cfg.Clock()

	if err := s.updateStatus(ctx, model.BookingUpcoming, booking); err != nil {
		if errors.Is(err, bookingserrors.ErrStatusMismatch) {
			return nil, apperrors.NotCancellable(id, "changed concurrently")
		}
		return nil, err
	}

	s.cfg.Log.Info("Booking cancelled",
		"booking_id", id,
		"reference", booking.Reference,
		"slot_id", booking.SlotID,
	)
	return booking, nil
}

func (s *bookingService) RevertCancellation(ctx context.Context, prev *model.Booking) error {
	if err := s.updateStatus(ctx, model.BookingCancelled, prev); err != nil {
		if errors.Is(err, bookingserrors.ErrStatusMismatch) {
			return apperrors.InvalidTransition("booking", prev.ID, string(model.BookingCancelled), string(prev.Status))
		}
		return err
	}
	return nil
}

func (s *bookingService) RecordCompletion(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingUpcoming {
		return nil, apperrors.InvalidTransition("booking", id, string(booking.Status), string(model.BookingCompleted))
	}

	booking.Status = model.BookingCompleted
	booking.CompletedAt = s.cfg.Clock()

	if err := s.updateStatus(ctx, model.BookingUpcoming, booking); err != nil {
		if errors.Is(err, bookingserrors.ErrStatusMismatch) {
			return nil, apperrors.InvalidTransition("booking", id, string(model.BookingUpcoming), string(model.BookingCompleted))
		}
		return nil, err
	}

	s.cfg.Log.Info("Booking completed",
		"booking_id", id,
		"reference", booking.Reference,
	)
	return booking, nil
}

// updateStatus passes ErrStatusMismatch through for the caller to name.
func (s *bookingService) updateStatus(ctx context.Context, from model.BookingStatus, booking *model.Booking) error {
	err := s.repo.UpdateStatus(ctx, from, booking)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bookingserrors.ErrStatusMismatch):
		return err
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", booking.ID)
	case errors.Is(err, bookingserrors.ErrActiveExists):
		return apperrors.SlotUnavailable(booking.SlotID, "slot already has an upcoming booking")
	default:
		s.cfg.Log.Error("Failed to update booking status",
			"booking_id", booking.ID,
			"from", from,
			"to", booking.Status,
			"error", err,
		)
		return apperrors.Internal("Failed to update booking", err)
	}
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		s.cfg.Log.Error("Failed to get booking by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if reference == "" {
		return nil, apperrors.InvalidInput("Booking reference cannot be empty")
	}

	booking, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Booking").WithDetails(map[string]any{"reference": reference})
		}
		s.cfg.Log.Error("Failed to get booking by reference",
			"reference", reference,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) ListByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountByUser(ctx, userID)
		if err != nil {
			s.cfg.Log.Error("Failed to count user bookings", "user_id", userID, "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.FindByUser(ctx, userID, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list user bookings",
				"user_id", userID,
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve bookings", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return bookings, count, nil
}

func (s *bookingService) ListByCourt(ctx context.Context, courtID string, filter model.BookingFilter) ([]*model.Booking, error) {
	if courtID == "" {
		return nil, apperrors.InvalidInput("Court ID cannot be empty")
	}
	rng := filter.Range
	if !rng.From.IsZero() && !rng.To.IsZero() && !rng.From.Before(rng.To) {
		return nil, apperrors.InvalidInput("from must be before to")
	}
	switch filter.Status {
	case "", model.BookingUpcoming, model.BookingCompleted, model.BookingCancelled:
	default:
		return nil, apperrors.InvalidInput("status must be one of upcoming, completed, cancelled")
	}

	if filter.Period != "" {
		period, err := s.periodRange(filter.Period)
		if err != nil {
			return nil, err
		}
		filter.Range = rng.Intersect(period)
		filter.Period = ""
		if !filter.Range.From.IsZero() && !filter.Range.To.IsZero() && !filter.Range.From.Before(filter.Range.To) {
			return []*model.Booking{}, nil
		}
	}

	bookings, err := s.repo.FindByCourt(ctx, courtID, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to list court bookings",
			"court_id", courtID,
			"status", filter.Status,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}
	return bookings, nil
}

// periodRange turns a period into start-time bounds on the club's calendar:
// today is the current local day, upcoming starts tomorrow, past ended
// before today.
func (s *bookingService) periodRange(period model.BookingPeriod) (model.DateRange, error) {
	now := s.cfg.Clock().In(s.cfg.Loc())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)

	switch period {
	case model.PeriodToday:
		return model.DateRange{From: today, To: tomorrow}, nil
	case model.PeriodUpcoming:
		return model.DateRange{From: tomorrow}, nil
	case model.PeriodPast:
		return model.DateRange{To: today}, nil
	default:
		return model.DateRange{}, apperrors.InvalidInput("when must be one of today, upcoming, past")
	}
}

func (s *bookingService) ActiveForSlot(ctx context.Context, slotID string) (*model.Booking, error) {
	booking, err := s.repo.FindActiveBySlot(ctx, slotID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, nil
		}
		s.cfg.Log.Error("Failed to find active booking", "slot_id", slotID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) ListEndedUpcoming(ctx context.Context, before time.Time) ([]*model.Booking, error) {
	bookings, err := s.repo.FindEndedUpcoming(ctx, before)
	if err != nil {
		s.cfg.Log.Error("Failed to list ended bookings", "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}
	return bookings, nil
}
