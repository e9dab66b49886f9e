// Package events turns allocator notifications into Kafka messages for the
// notification and billing services.
package events

import (
	"context"
	"courtbook/internal/reservations/service"
	"courtbook/pkg/kafka"
	"courtbook/pkg/logger"
	"courtbook/pkg/middleware"
	"courtbook/pkg/model"
	"time"
)

const (
	EventWaitlistPromoted = "waitlist.promoted"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventPaymentOrphaned  = "payment.orphaned"

	SchemaVersion = "1"
	Source        = "courtbook-reservations"
)

type PromotedPayload struct {
	EntryID     string         `json:"entry_id"`
	UserID      string         `json:"user_id"`
	SlotID      string         `json:"slot_id"`
	RequestedAt time.Time      `json:"requested_at"`
	Booking     BookingPayload `json:"booking"`
}

type BookingPayload struct {
	BookingID     string              `json:"booking_id"`
	Reference     string              `json:"reference"`
	SlotID        string              `json:"slot_id"`
	CourtID       string              `json:"court_id"`
	UserID        string              `json:"user_id"`
	StartTime     time.Time           `json:"start_time"`
	EndTime       time.Time           `json:"end_time"`
	Price         int64               `json:"price"`
	Status        model.BookingStatus `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	PromotedFrom  string              `json:"promoted_from,omitempty"`
}

type CancelledPayload struct {
	Cancelled BookingPayload `json:"cancelled"`
	TakenOver BookingPayload `json:"taken_over_by"`
}

// Publisher satisfies the allocator's promotion, booking and payment
// listeners. Events are keyed by slot id so one slot's events stay in order.
// A failed publish is logged and dropped; the producer's dead letter topic
// keeps a copy.
type Publisher struct {
	producer kafka.Publisher
	log      *logger.Logger
}

func NewPublisher(producer kafka.Publisher, log *logger.Logger) *Publisher {
	return &Publisher{producer: producer, log: log}
}

func (p *Publisher) OnWaitingListPromoted(ctx context.Context, entry *model.WaitingListEntry, booking *model.Booking) {
	p.publish(ctx, EventWaitlistPromoted, entry.SlotID, PromotedPayload{
		EntryID:     entry.ID,
		UserID:      entry.UserID,
		SlotID:      entry.SlotID,
		RequestedAt: entry.RequestedAt,
		Booking:     bookingPayload(booking),
	})
}

func (p *Publisher) OnBookingConfirmed(ctx context.Context, booking *model.Booking) {
	p.publish(ctx, EventBookingConfirmed, booking.SlotID, bookingPayload(booking))
}

func (p *Publisher) OnBookingCancelled(ctx context.Context, cancelled *model.Booking, promoted *model.Booking) {
	p.publish(ctx, EventBookingCancelled, cancelled.SlotID, CancelledPayload{
		Cancelled: bookingPayload(cancelled),
		TakenOver: bookingPayload(promoted),
	})
}

// OnPaymentOrphaned asks billing to refund a charge that never became a
// booking.
func (p *Publisher) OnPaymentOrphaned(ctx context.Context, charge service.OrphanedCharge) {
	p.publish(ctx, EventPaymentOrphaned, charge.SlotID, charge)
}

func (p *Publisher) publish(ctx context.Context, eventType, key string, payload any) {
	msg, err := kafka.NewMessage(key, kafka.Envelope{
		Type:          eventType,
		Source:        Source,
		SchemaVersion: SchemaVersion,
		CorrelationID: middleware.RequestIDFromContext(ctx),
	}, payload)
	if err != nil {
		p.log.Error("Failed to build event", "event_type", eventType, "key", key, "error", err)
		return
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish event",
			"event_type", eventType,
			"key", key,
			"event_id", msg.EventID(),
			"transient", kafka.IsTransient(err),
			"error", err,
		)
	}
}

func bookingPayload(b *model.Booking) BookingPayload {
	return BookingPayload{
		BookingID:     b.ID,
		Reference:     b.Reference,
		SlotID:        b.SlotID,
		CourtID:       b.CourtID,
		UserID:        b.UserID,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		Price:         b.Price,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		PromotedFrom:  b.PromotedFrom,
	}
}
