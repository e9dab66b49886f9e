package model

import (
	"time"
)

type BookingStatus string

const (
	BookingUpcoming  BookingStatus = "upcoming"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Booking struct {
	ID               string        `json:"id" bson:"_id" validate:"required"`
	SlotID           string        `json:"slot_id" bson:"slot_id" validate:"required"`
	CourtID          string        `json:"court_id" bson:"court_id" validate:"required"`
	UserID           string        `json:"user_id" bson:"user_id" validate:"required,max=100"`
	StartTime        time.Time     `json:"start_time" bson:"start_time" validate:"required"`
	EndTime          time.Time     `json:"end_time" bson:"end_time" validate:"required"`
	Price            int64         `json:"price" bson:"price" validate:"min=0"`
	Status           BookingStatus `json:"status" bson:"status" validate:"required,oneof=upcoming completed cancelled"`
	PaymentStatus    PaymentStatus `json:"payment_status" bson:"payment_status" validate:"required,oneof=paid refunded"`
	Reference        string        `json:"reference" bson:"reference" validate:"required,booking_reference"`
	PaymentReference string        `json:"payment_reference,omitempty" bson:"payment_reference,omitempty"`
	PromotedFrom     string        `json:"promoted_from,omitempty" bson:"promoted_from,omitempty"`
	CreatedAt        time.Time     `json:"created_at" bson:"created_at"`
	CancelledAt      time.Time     `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CompletedAt      time.Time     `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// DateRange is a half-open [From, To) interval used by ledger queries.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// Intersect narrows r to the part that also lies in o. Zero bounds are open.
func (r DateRange) Intersect(o DateRange) DateRange {
	if r.From.IsZero() || o.From.After(r.From) {
		r.From = o.From
	}
	if r.To.IsZero() || (!o.To.IsZero() && o.To.Before(r.To)) {
		r.To = o.To
	}
	return r
}

// BookingPeriod selects bookings by calendar day relative to today.
type BookingPeriod string

const (
	PeriodToday    BookingPeriod = "today"
	PeriodUpcoming BookingPeriod = "upcoming"
	PeriodPast     BookingPeriod = "past"
)

// BookingFilter narrows a court listing. Zero fields match everything.
// Period is resolved into Range before it reaches a repository.
type BookingFilter struct {
	Range  DateRange
	Status BookingStatus
	Period BookingPeriod
}

func (f BookingFilter) Matches(b *Booking) bool {
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	return f.Range.Contains(b.StartTime)
}

func (b *Booking) Clone() *Booking {
	c := *b
	return &c
}
