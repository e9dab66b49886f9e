package validator

import (
	"courtbook/pkg/logger"
	"courtbook/pkg/model"
	"errors"
	"testing"
	"time"
)

func validBooking() *model.Booking {
	start := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	return &model.Booking{
		ID:            "b1",
		SlotID:        "c1-2026-03-02-1800",
		CourtID:       "c1",
		UserID:        "alice",
		StartTime:     start,
		EndTime:       start.Add(2 * time.Hour),
		Price:         4000,
		Status:        model.BookingUpcoming,
		PaymentStatus: model.PaymentPaid,
		Reference:     "BKNG0A1B2C3D",
	}
}

func TestBookingValidator(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	tests := []struct {
		name       string
		mutate     func(*model.Booking)
		wantFields []string
	}{
		{"valid", func(*model.Booking) {}, nil},
		{"missing user", func(b *model.Booking) { b.UserID = "" }, []string{"user_id"}},
		{"lower-case reference", func(b *model.Booking) { b.Reference = "bkng0a1b2c3d" }, []string{"reference"}},
		{"negative price", func(b *model.Booking) { b.Price = -1 }, []string{"price"}},
		{"ends before it starts", func(b *model.Booking) { b.EndTime = b.StartTime }, []string{"end_time"}},
		{"upcoming but refunded", func(b *model.Booking) { b.PaymentStatus = model.PaymentRefunded }, []string{"payment_status"}},
		{"cancelled but paid", func(b *model.Booking) { b.Status = model.BookingCancelled }, []string{"payment_status"}},
		{"completed_at on upcoming", func(b *model.Booking) { b.CompletedAt = b.EndTime }, []string{"completed_at"}},
		{"several problems", func(b *model.Booking) {
			b.UserID = ""
			b.CancelledAt = b.StartTime
		}, []string{"user_id", "cancelled_at"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBooking()
			tt.mutate(b)
			err := v.Validate(b)

			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if len(verrs) != len(tt.wantFields) {
				t.Fatalf("expected %d errors, got %v", len(tt.wantFields), verrs)
			}
			for i, field := range tt.wantFields {
				if verrs[i].Field != field {
					t.Errorf("error %d: expected field %s, got %s", i, field, verrs[i].Field)
				}
			}
		})
	}
}
