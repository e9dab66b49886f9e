package service

import (
	"context"
	"courtbook/pkg/logger"
	"courtbook/pkg/model"
)

// PromotionListener is told about every committed waiting list promotion.
// Notification delivery hangs off this.
type PromotionListener interface {
	OnWaitingListPromoted(ctx context.Context, entry *model.WaitingListEntry, booking *model.Booking)
}

// BookingListener is told about confirmed and cancelled bookings. promoted is
// the booking that took over the slot.
type BookingListener interface {
	OnBookingConfirmed(ctx context.Context, booking *model.Booking)
	OnBookingCancelled(ctx context.Context, cancelled *model.Booking, promoted *model.Booking)
}

// LogListener writes allocator events to the service log.
type LogListener struct {
	log *logger.Logger
}

func NewLogListener(log *logger.Logger) *LogListener {
	return &LogListener{log: log}
}

func (l *LogListener) OnWaitingListPromoted(_ context.Context, entry *model.WaitingListEntry, booking *model.Booking) {
	l.log.Info("Waiting list entry promoted",
		"entry_id", entry.ID,
		"user_id", entry.UserID,
		"slot_id", entry.SlotID,
		"booking_id", booking.ID,
		"reference", booking.Reference,
	)
}

func (l *LogListener) OnBookingConfirmed(_ context.Context, booking *model.Booking) {
	l.log.Info("Booking confirmed",
		"booking_id", booking.ID,
		"reference", booking.Reference,
		"slot_id", booking.SlotID,
		"user_id", booking.UserID,
	)
}

func (l *LogListener) OnBookingCancelled(_ context.Context, cancelled *model.Booking, promoted *model.Booking) {
	l.log.Info("Booking cancelled and refunded",
		"booking_id", cancelled.ID,
		"reference", cancelled.Reference,
		"slot_id", cancelled.SlotID,
		"taken_over_by", promoted.UserID,
	)
}

// OrphanedCharge is a payment the gateway collected for a hold that could not
// be turned into a booking. Someone has to refund it.
type OrphanedCharge struct {
	SlotID           string `json:"slot_id"`
	UserID           string `json:"user_id"`
	Amount           int64  `json:"amount"`
	HoldToken        string `json:"hold_token"`
	PaymentReference string `json:"payment_reference"`
	Reason           string `json:"reason"`
}

// PaymentListener is told about charges that need a refund. The allocator
// logs each one itself.
type PaymentListener interface {
	OnPaymentOrphaned(ctx context.Context, charge OrphanedCharge)
}
