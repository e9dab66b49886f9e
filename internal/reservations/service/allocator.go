package service

import (
	"context"
	"courtbook/pkg/config"
	apperrors "courtbook/pkg/errors"
	"courtbook/pkg/locks"
	"courtbook/pkg/model"
	"courtbook/pkg/payment"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SlotLedger is the part of the slot service the allocator drives.
type SlotLedger interface {
	GetSlot(ctx context.Context, id string) (*model.Slot, error)
	MarkHeld(ctx context.Context, id string, hold model.SlotHold) (*model.Slot, error)
	MarkBooked(ctx context.Context, id string, hold model.SlotHold, bookingID string) (*model.Slot, error)
	MarkAvailable(ctx context.Context, id string) (*model.Slot, error)
	ReleaseHold(ctx context.Context, id, holdToken string) (*model.Slot, error)
	Restore(ctx context.Context, prev *model.Slot, from model.SlotStatus) error
	EvictExpiredHolds(ctx context.Context) (int, error)
}

// WaitingList is the part of the queue service the allocator drives. The
// allocator holds the queue lock whenever it calls these.
type WaitingList interface {
	List(ctx context.Context, slotID string) ([]*model.WaitingListEntry, error)
	RemoveLocked(ctx context.Context, entryID string) (*model.WaitingListEntry, error)
	RestoreLocked(ctx context.Context, entry *model.WaitingListEntry) error
}

type BookingLedger interface {
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	RecordBooking(ctx context.Context, booking *model.Booking) error
	RecordCancellation(ctx context.Context, id string) (*model.Booking, error)
	RevertCancellation(ctx context.Context, prev *model.Booking) error
	RecordCompletion(ctx context.Context, id string) (*model.Booking, error)
	ListEndedUpcoming(ctx context.Context, before time.Time) ([]*model.Booking, error)
}

// CancelResult describes a committed cancellation: the refunded booking, the
// waiting list entry that took the slot over and the booking created for it.
type CancelResult struct {
	Cancelled *model.Booking          `json:"cancelled"`
	Promoted  *model.Booking          `json:"promoted"`
	Entry     *model.WaitingListEntry `json:"promoted_entry"`
}

type SweepResult struct {
	HoldsReleased     int `json:"holds_released"`
	BookingsCompleted int `json:"bookings_completed"`
}

type ReservationService interface {
	Hold(ctx context.Context, actor model.Actor, slotID string) (*model.HoldToken, error)
	Confirm(ctx context.Context, actor model.Actor, slotID, token string, result model.PaymentResult) (*model.Booking, error)
	// Checkout charges the hold's price through the payment gateway and
	// confirms with the outcome. Payment is never retried.
	Checkout(ctx context.Context, actor model.Actor, slotID, token string) (*model.Booking, error)
	Cancel(ctx context.Context, actor model.Actor, bookingID string) (*CancelResult, error)
	Complete(ctx context.Context, bookingID string) (*model.Booking, error)
	Sweep(ctx context.Context) (SweepResult, error)
}

type Option func(*reservationService)

func WithPromotionListener(l PromotionListener) Option {
	return func(s *reservationService) {
		s.promotionListeners = append(s.promotionListeners, l)
	}
}

func WithBookingListener(l BookingListener) Option {
	return func(s *reservationService) {
		s.bookingListeners = append(s.bookingListeners, l)
	}
}

func WithPaymentListener(l PaymentListener) Option {
	return func(s *reservationService) {
		s.paymentListeners = append(s.paymentListeners, l)
	}
}

type reservationService struct {
	slots    SlotLedger
	waitlist WaitingList
	bookings BookingLedger
	payments payment.Gateway
	locks    *locks.Manager
	cfg      *config.Config

	promotionListeners []PromotionListener
	bookingListeners   []BookingListener
	paymentListeners   []PaymentListener
}

func NewReservationService(
	slots SlotLedger,
	waitlist WaitingList,
	bookings BookingLedger,
	payments payment.Gateway,
	lockManager *locks.Manager,
	cfg *config.Config,
	opts ...Option,
) ReservationService {
	s := &reservationService{
		slots:    slots,
		waitlist: waitlist,
		bookings: bookings,
		payments: payments,
		locks:    lockManager,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *reservationService) Hold(ctx context.Context, actor model.Actor, slotID string) (*model.HoldToken, error) {
	if slotID == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	lease, err := s.locks.Acquire(ctx, locks.SlotKey(slotID))
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	slot, err := s.slots.GetSlot(ctx, slotID)
	if err != nil {
		return nil, s.operationError(ctx, err)
	}

	now := s.cfg.Clock()
	if slot.Status != model.SlotAvailable {
		return nil, apperrors.SlotUnavailable(slotID, "slot is already "+string(slot.Status))
	}
	if !now.Before(slot.StartTime) {
		return nil, apperrors.SlotUnavailable(slotID, "slot has already started")
	}

	hold := model.SlotHold{
		UserID:    actor.UserID,
		Token:     uuid.New().String(),
		ExpiresAt: now.Add(s.cfg.HoldTTL),
	}
	if _, err := s.slots.MarkHeld(ctx, slotID, hold); err != nil {
		if apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
			return nil, apperrors.SlotUnavailable(slotID, "slot was taken by another request")
		}
		return nil, s.operationError(ctx, err)
	}

	s.cfg.Log.Info("Slot held",
		"slot_id", slotID,
		"user_id", actor.UserID,
		"expires_at", hold.ExpiresAt,
	)

	return &model.HoldToken{
		Token:     hold.Token,
		SlotID:    slotID,
		UserID:    actor.UserID,
		Price:     slot.Price,
		ExpiresAt: hold.ExpiresAt,
	}, nil
}

func (s *reservationService) Confirm(ctx context.Context, actor model.Actor, slotID, token string, result model.PaymentResult) (*model.Booking, error) {
	if slotID == "" || token == "" {
		return nil, apperrors.InvalidInput("Slot ID and hold token are required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	booking, err := s.confirmUnderLock(ctx, actor, slotID, token, result)
	if err != nil {
		return nil, err
	}
	s.notifyConfirmed(ctx, booking)
	return booking, nil
}

func (s *reservationService) Checkout(ctx context.Context, actor model.Actor, slotID, token string) (*model.Booking, error) {
	if slotID == "" || token == "" {
		return nil, apperrors.InvalidInput("Slot ID and hold token are required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	slot, err := s.heldSlot(ctx, actor, slotID, token)
	if err != nil {
		return nil, err
	}

	result, err := s.payments.Charge(ctx, payment.ChargeRequest{
		SlotID:    slotID,
		UserID:    slot.HeldBy,
		Amount:    slot.Price,
		HoldToken: token,
	})
	if err != nil {
		s.cfg.Log.Warn("Payment gateway failed, treating charge as declined",
			"slot_id", slotID,
			"user_id", slot.HeldBy,
			"error", err,
		)
		result = model.PaymentResult{Success: false, Reason: "payment service unavailable"}
	}

	booking, err := s.confirmUnderLock(ctx, actor, slotID, token, result)
	if err != nil {
		if result.Success {
			s.notifyOrphaned(ctx, OrphanedCharge{
				SlotID:           slotID,
				UserID:           slot.HeldBy,
				Amount:           slot.Price,
				HoldToken:        token,
				PaymentReference: result.Reference,
				Reason:           apperrors.AsAppError(err).Code,
			})
		}
		return nil, err
	}
	s.notifyConfirmed(ctx, booking)
	return booking, nil
}

// confirmUnderLock takes the slot and queue locks for one confirmation and
// releases them before the caller notifies anyone.
func (s *reservationService) confirmUnderLock(ctx context.Context, actor model.Actor, slotID, token string, result model.PaymentResult) (*model.Booking, error) {
	leases, err := s.locks.AcquireAll(ctx, locks.SlotKey(slotID), locks.WaitlistKey(slotID))
	if err != nil {
		return nil, err
	}
	defer locks.ReleaseAll(leases)

	return s.confirmLocked(ctx, actor, slotID, token, result)
}

// heldSlot returns the slot if token still holds it. Reading it also evicts
// an expired hold.
func (s *reservationService) heldSlot(ctx context.Context, actor model.Actor, slotID, token string) (*model.Slot, error) {
	slot, err := s.slots.GetSlot(ctx, slotID)
	if err != nil {
		return nil, s.operationError(ctx, err)
	}
	if slot.Status != model.SlotHeld || slot.HoldToken != token {
		return nil, apperrors.HoldExpired(slotID)
	}
	if !actor.IsAdmin() && slot.HeldBy != actor.UserID {
		return nil, apperrors.Forbidden("hold belongs to another user")
	}
	return slot, nil
}

func (s *reservationService) confirmLocked(ctx context.Context, actor model.Actor, slotID, token string, result model.PaymentResult) (*model.Booking, error) {
	slot, err := s.heldSlot(ctx, actor, slotID, token)
	if err != nil {
		return nil, err
	}

	if !result.Success {
		s.releaseHold(ctx, slotID, token)
		s.cfg.Log.Warn("Payment declined, hold released",
			"slot_id", slotID,
			"user_id", slot.HeldBy,
			"reason", result.Reason,
		)
		return nil, apperrors.PaymentDeclined(slotID, result.Reason)
	}

	hold := model.SlotHold{UserID: slot.HeldBy, Token: token, ExpiresAt: slot.HoldExpiresAt}
	booking := &model.Booking{
		ID:               uuid.New().String(),
		SlotID:           slotID,
		CourtID:          slot.CourtID,
		UserID:           slot.HeldBy,
		StartTime:        slot.StartTime,
		EndTime:          slot.EndTime,
		Price:            slot.Price,
		Status:           model.BookingUpcoming,
		PaymentStatus:    model.PaymentPaid,
		PaymentReference: result.Reference,
	}

	var undo undoStack
	err = undo.do(ctx, "book slot", func(ctx context.Context) (func(context.Context) error, error) {
		if _, err := s.slots.MarkBooked(ctx, slotID, hold, booking.ID); err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return s.slots.Restore(ctx, slot, model.SlotBooked) }, nil
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
			s.releaseHold(ctx, slotID, token)
			return nil, apperrors.HoldExpired(slotID)
		}
		return nil, s.operationError(ctx, err)
	}

	err = undo.do(ctx, "record booking", func(ctx context.Context) (func(context.Context) error, error) {
		return nil, s.bookings.RecordBooking(ctx, booking)
	})
	if err != nil {
		undo.rollback(ctx, s.cfg.OperationTimeout, s.cfg.Log)
		return nil, s.operationError(ctx, err)
	}

	s.dropOwnEntry(ctx, booking)
	return booking, nil
}

// dropOwnEntry removes the booker's queue entry for the slot they just
// booked. Such an entry exists when the user queued behind someone else's
// hold that later lapsed. Failure is logged; Cancel skips the entry anyway.
func (s *reservationService) dropOwnEntry(ctx context.Context, booking *model.Booking) {
	queue, err := s.waitlist.List(ctx, booking.SlotID)
	if err != nil {
		s.cfg.Log.Warn("Failed to read waiting list after booking", "slot_id", booking.SlotID, "error", err)
		return
	}
	for _, e := range queue {
		if e.UserID != booking.UserID {
			continue
		}
		if _, err := s.waitlist.RemoveLocked(ctx, e.ID); err != nil {
			s.cfg.Log.Warn("Failed to drop booker's waiting list entry",
				"slot_id", booking.SlotID,
				"entry_id", e.ID,
				"error", err,
			)
			return
		}
		s.cfg.Log.Info("Booker's waiting list entry dropped",
			"slot_id", booking.SlotID,
			"entry_id", e.ID,
			"user_id", e.UserID,
		)
	}
}

func (s *reservationService) notifyConfirmed(ctx context.Context, booking *model.Booking) {
	notifyCtx := context.WithoutCancel(ctx)
	for _, l := range s.bookingListeners {
		l.OnBookingConfirmed(notifyCtx, booking)
	}
}

func (s *reservationService) notifyOrphaned(ctx context.Context, charge OrphanedCharge) {
	s.cfg.Log.Error("Charge collected but booking not confirmed; refund required",
		"slot_id", charge.SlotID,
		"user_id", charge.UserID,
		"amount", charge.Amount,
		"payment_reference", charge.PaymentReference,
		"reason", charge.Reason,
	)
	notifyCtx := context.WithoutCancel(ctx)
	for _, l := range s.paymentListeners {
		l.OnPaymentOrphaned(notifyCtx, charge)
	}
}

// releaseHold is best effort; a hold left behind expires on its own.
func (s *reservationService) releaseHold(ctx context.Context, slotID, token string) {
	if _, err := s.slots.ReleaseHold(context.WithoutCancel(ctx), slotID, token); err != nil {
		s.cfg.Log.Warn("Failed to release hold",
			"slot_id", slotID,
			"error", err,
		)
	}
}

// Cancel refunds an upcoming booking, but only by handing its slot to the
// head of the slot's waiting list. Either every step commits or none does.
func (s *reservationService) Cancel(ctx context.Context, actor model.Actor, bookingID string) (*CancelResult, error) {
	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, s.operationError(ctx, err)
	}
	if !actor.IsAdmin() && booking.UserID != actor.UserID {
		return nil, apperrors.Forbidden("only the booking owner or an admin can cancel a booking")
	}
	if err := s.cancellable(booking); err != nil {
		return nil, err
	}

	result, err := s.cancelUnderLock(ctx, booking)
	if err != nil {
		return nil, err
	}

	notifyCtx := context.WithoutCancel(ctx)
	for _, l := range s.promotionListeners {
		l.OnWaitingListPromoted(notifyCtx, result.Entry, result.Promoted)
	}
	for _, l := range s.bookingListeners {
		l.OnBookingCancelled(notifyCtx, result.Cancelled, result.Promoted)
	}
	return result, nil
}

// cancellable refuses bookings that are no longer upcoming or whose slot has
// already started.
func (s *reservationService) cancellable(booking *model.Booking) error {
	if booking.Status != model.BookingUpcoming {
		return apperrors.NotCancellable(booking.ID, string(booking.Status))
	}
	if !s.cfg.Clock().Before(booking.StartTime) {
		return apperrors.NotCancellable(booking.ID, "already started")
	}
	return nil
}

// cancelUnderLock re-reads the booking with the slot and queue locks held and
// runs the takeover. The locks are released before listeners run.
func (s *reservationService) cancelUnderLock(ctx context.Context, booking *model.Booking) (*CancelResult, error) {
	leases, err := s.locks.AcquireAll(ctx, locks.SlotKey(booking.SlotID), locks.WaitlistKey(booking.SlotID))
	if err != nil {
		return nil, err
	}
	defer locks.ReleaseAll(leases)

	booking, err = s.bookings.GetByID(ctx, booking.ID)
	if err != nil {
		return nil, s.operationError(ctx, err)
	}
	if err := s.cancellable(booking); err != nil {
		return nil, err
	}

	queue, err := s.waitlist.List(ctx, booking.SlotID)
	if err != nil {
		return nil, s.operationError(ctx, err)
	}
	head := takeoverHead(queue, booking.UserID)
	if head == nil {
		s.cfg.Log.Info("Cancellation refused, nobody else is waiting",
			"booking_id", booking.ID,
			"slot_id", booking.SlotID,
			"queued", len(queue),
		)
		return nil, apperrors.NoWaitingListTakeover(booking.ID, booking.SlotID)
	}

	return s.promote(ctx, booking, head)
}

// takeoverHead is the first queued user other than the booking's owner.
func takeoverHead(queue []*model.WaitingListEntry, owner string) *model.WaitingListEntry {
	for _, e := range queue {
		if e.UserID != owner {
			return e
		}
	}
	return nil
}

// promote runs the takeover with the slot and queue locks held. The new
// booking is recorded last so nothing after it needs undoing.
func (s *reservationService) promote(ctx context.Context, original *model.Booking, head *model.WaitingListEntry) (*CancelResult, error) {
	slotID := original.SlotID

	booked, err := s.slots.GetSlot(ctx, slotID)
	if err != nil {
		return nil, s.operationError(ctx, err)
	}
	if booked.Status != model.SlotBooked || booked.BookingID != original.ID {
		return nil, apperrors.InvalidTransition("slot", slotID, string(booked.Status), string(model.SlotAvailable))
	}

	now := s.cfg.Clock()
	hold := model.SlotHold{
		UserID:    head.UserID,
		Token:     uuid.New().String(),
		ExpiresAt: now.Add(s.cfg.HoldTTL),
	}
	promoted := &model.Booking{
		ID:            uuid.New().String(),
		SlotID:        slotID,
		CourtID:       original.CourtID,
		UserID:        head.UserID,
		StartTime:     original.StartTime,
		EndTime:       original.EndTime,
		Price:         original.Price,
		Status:        model.BookingUpcoming,
		PaymentStatus: model.PaymentPaid,
		PromotedFrom:  head.ID,
	}

	var (
		undo      undoStack
		available *model.Slot
		held      *model.Slot
		entry     *model.WaitingListEntry
		cancelled *model.Booking
	)

	fail := func(err error) (*CancelResult, error) {
		clean := undo.rollback(ctx, s.cfg.OperationTimeout, s.cfg.Log)
		s.cfg.Log.Warn("Cancellation rolled back",
			"booking_id", original.ID,
			"slot_id", slotID,
			"waiting_list_entry", head.ID,
			"clean", clean,
			"error", err,
		)
		return nil, s.operationError(ctx, err)
	}

	if err := undo.do(ctx, "release slot", func(ctx context.Context) (func(context.Context) error, error) {
		var err error
		if available, err = s.slots.MarkAvailable(ctx, slotID); err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return s.slots.Restore(ctx, booked, model.SlotAvailable) }, nil
	}); err != nil {
		return fail(err)
	}

	if err := undo.do(ctx, "hold slot for head", func(ctx context.Context) (func(context.Context) error, error) {
		var err error
		if held, err = s.slots.MarkHeld(ctx, slotID, hold); err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return s.slots.Restore(ctx, available, model.SlotHeld) }, nil
	}); err != nil {
		return fail(err)
	}

	if err := undo.do(ctx, "book slot for head", func(ctx context.Context) (func(context.Context) error, error) {
		if _, err := s.slots.MarkBooked(ctx, slotID, hold, promoted.ID); err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return s.slots.Restore(ctx, held, model.SlotBooked) }, nil
	}); err != nil {
		return fail(err)
	}

	if err := undo.do(ctx, "pop waiting list head", func(ctx context.Context) (func(context.Context) error, error) {
		var err error
		if entry, err = s.waitlist.RemoveLocked(ctx, head.ID); err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return s.waitlist.RestoreLocked(ctx, entry) }, nil
	}); err != nil {
		return fail(err)
	}

	if err := undo.do(ctx, "cancel booking", func(ctx context.Context) (func(context.Context) error, error) {
		var err error
		if cancelled, err = s.bookings.RecordCancellation(ctx, original.ID); err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return s.bookings.RevertCancellation(ctx, original) }, nil
	}); err != nil {
		return fail(err)
	}

	if err := undo.do(ctx, "record promoted booking", func(ctx context.Context) (func(context.Context) error, error) {
		return nil, s.bookings.RecordBooking(ctx, promoted)
	}); err != nil {
		return fail(err)
	}

	s.cfg.Log.Info("Booking cancelled with waiting list takeover",
		"booking_id", original.ID,
		"slot_id", slotID,
		"promoted_booking_id", promoted.ID,
		"promoted_user_id", promoted.UserID,
	)

	return &CancelResult{
		Cancelled: cancelled,
		Promoted:  promoted,
		Entry:     entry,
	}, nil
}

func (s *reservationService) Complete(ctx context.Context, bookingID string) (*model.Booking, error) {
	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, s.operationError(ctx, err)
	}
	if booking.Status != model.BookingUpcoming {
		return nil, apperrors.InvalidTransition("booking", bookingID, string(booking.Status), string(model.BookingCompleted))
	}
	if s.cfg.Clock().Before(booking.EndTime) {
		return nil, apperrors.New(apperrors.CodeInvalidTransition, "cannot complete: the slot has not ended yet", http.StatusConflict).
			WithDetails(map[string]any{"booking_id": bookingID, "end_time": booking.EndTime})
	}

	lease, err := s.locks.Acquire(ctx, locks.SlotKey(booking.SlotID))
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	done, err := s.bookings.RecordCompletion(ctx, bookingID)
	if err != nil {
		return nil, s.operationError(ctx, err)
	}
	return done, nil
}

// Sweep releases expired holds and completes bookings whose slot has ended.
// A booking that fails to complete is left for the next pass.
func (s *reservationService) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	released, err := s.slots.EvictExpiredHolds(ctx)
	res.HoldsReleased = released
	if err != nil {
		return res, err
	}

	ended, err := s.bookings.ListEndedUpcoming(ctx, s.cfg.Clock())
	if err != nil {
		return res, err
	}
	for _, b := range ended {
		if _, err := s.Complete(ctx, b.ID); err != nil {
			s.cfg.Log.Warn("Failed to complete ended booking",
				"booking_id", b.ID,
				"error", err,
			)
			continue
		}
		res.BookingsCompleted++
	}
	return res, nil
}

func (s *reservationService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.OperationTimeout)
}

// operationError reports a Timeout once ctx has ended, whatever the step that
// noticed it returned.
func (s *reservationService) operationError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.Timeout("operation did not finish in time; no changes were kept")
	}
	return err
}
