package service

import (
	"context"
	"courtbook/internal/bookings/repository"
	"courtbook/internal/bookings/validator"
	"courtbook/pkg/config"
	apperrors "courtbook/pkg/errors"
	"courtbook/pkg/logger"
	"courtbook/pkg/model"
	"regexp"
	"strings"
	"testing"
	"time"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestService() (BookingService, *testClock) {
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	log := logger.Discard()
	cfg := &config.Config{Log: log, Now: clock.Now}
	return NewBookingService(repository.NewMemoryBookingRepository(), validator.NewBookingValidator(log), cfg), clock
}

func newBooking(slotID, userID string, start time.Time) *model.Booking {
	return &model.Booking{
		SlotID:        slotID,
		CourtID:       "c1",
		UserID:        userID,
		StartTime:     start,
		EndTime:       start.Add(2 * time.Hour),
		Price:         4000,
		Status:        model.BookingUpcoming,
		PaymentStatus: model.PaymentPaid,
	}
}

func TestNewReference(t *testing.T) {
	re := regexp.MustCompile(`^BKNG[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref := NewReference()
		if !re.MatchString(ref) {
			t.Fatalf("unexpected reference format %q", ref)
		}
		seen[ref] = true
	}
	if len(seen) < 99 {
		t.Errorf("expected references to be unique, got %d distinct of 100", len(seen))
	}
}

func TestRecordBooking(t *testing.T) {
	svc, clock := newTestService()
	ctx := context.Background()
	start := clock.now.Add(24 * time.Hour)

	b := newBooking("s1", "u1", start)
	if err := svc.RecordBooking(ctx, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.ID == "" || b.Reference == "" || !b.CreatedAt.Equal(clock.now) {
		t.Errorf("expected ID, reference and creation time to be set, got %+v", b)
	}

	second := newBooking("s1", "u2", start)
	if err := svc.RecordBooking(ctx, second); !apperrors.HasCode(err, apperrors.CodeSlotUnavailable) {
		t.Errorf("expected SLOT_UNAVAILABLE for a second upcoming booking, got %v", err)
	}

	bad := newBooking("s2", "u1", start)
	bad.PaymentStatus = model.PaymentRefunded
	if err := svc.RecordBooking(ctx, bad); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR for upcoming refunded booking, got %v", err)
	}

	active, err := svc.ActiveForSlot(ctx, "s1")
	if err != nil || active == nil || active.ID != b.ID {
		t.Errorf("expected active booking %s, got %v %v", b.ID, active, err)
	}
	if none, err := svc.ActiveForSlot(ctx, "s9"); none != nil || err != nil {
		t.Errorf("expected no active booking, got %v %v", none, err)
	}
}

func TestRecordCancellation(t *testing.T) {
	svc, clock := newTestService()
	ctx := context.Background()

	b := newBooking("s1", "u1", clock.now.Add(24*time.Hour))
	_ = svc.RecordBooking(ctx, b)

	cancelled, err := svc.RecordCancellation(ctx, b.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != model.BookingCancelled || cancelled.PaymentStatus != model.PaymentRefunded {
		t.Errorf("expected cancelled and refunded, got %s/%s", cancelled.Status, cancelled.PaymentStatus)
	}

	if _, err := svc.RecordCancellation(ctx, b.ID); !apperrors.HasCode(err, apperrors.CodeNotCancellable) {
		t.Errorf("expected NOT_CANCELLABLE on second cancel, got %v", err)
	}

	if err := svc.RevertCancellation(ctx, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reverted, _ := svc.GetByID(ctx, b.ID)
	if reverted.Status != model.BookingUpcoming || reverted.PaymentStatus != model.PaymentPaid || !reverted.CancelledAt.IsZero() {
		t.Errorf("expected original state after revert, got %+v", reverted)
	}
}

func TestRecordCompletion(t *testing.T) {
	svc, clock := newTestService()
	ctx := context.Background()

	b := newBooking("s1", "u1", clock.now.Add(-3*time.Hour))
	_ = svc.RecordBooking(ctx, b)

	ended, _ := svc.ListEndedUpcoming(ctx, clock.now)
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended booking, got %d", len(ended))
	}

	done, err := svc.RecordCompletion(ctx, b.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != model.BookingCompleted || done.CompletedAt.IsZero() {
		t.Errorf("unexpected completed booking %+v", done)
	}

	if _, err := svc.RecordCompletion(ctx, b.ID); !apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
		t.Errorf("expected INVALID_TRANSITION, got %v", err)
	}
	if _, err := svc.RecordCancellation(ctx, b.ID); !apperrors.HasCode(err, apperrors.CodeNotCancellable) {
		t.Errorf("expected completed booking not to be cancellable, got %v", err)
	}
}

func TestListByUser_MostRecentFirst(t *testing.T) {
	svc, clock := newTestService()
	ctx := context.Background()
	base := clock.now

	for i, slot := range []string{"s1", "s2", "s3"} {
		clock.now = base.Add(time.Duration(i) * time.Minute)
		if err := svc.RecordBooking(ctx, newBooking(slot, "u1", base.Add(48*time.Hour-time.Duration(i)*time.Hour*3))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	_ = svc.RecordBooking(ctx, newBooking("s4", "u2", base.Add(24*time.Hour)))

	bookings, total, err := svc.ListByUser(ctx, "u1", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(bookings) != 3 {
		t.Fatalf("expected 3 bookings, got %d (total %d)", len(bookings), total)
	}
	if bookings[0].SlotID != "s3" || bookings[2].SlotID != "s1" {
		t.Errorf("expected most recent first, got %s..%s", bookings[0].SlotID, bookings[2].SlotID)
	}
}

func TestListByCourt_RangeAndOrder(t *testing.T) {
	svc, clock := newTestService()
	ctx := context.Background()
	day := clock.now.Add(24 * time.Hour)

	_ = svc.RecordBooking(ctx, newBooking("late", "u1", day.Add(8*time.Hour)))
	_ = svc.RecordBooking(ctx, newBooking("early", "u2", day))
	_ = svc.RecordBooking(ctx, newBooking("next-day", "u3", day.Add(24*time.Hour)))

	bookings, err := svc.ListByCourt(ctx, "c1", model.BookingFilter{Range: model.DateRange{From: day, To: day.Add(24 * time.Hour)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bookings) != 2 || bookings[0].SlotID != "early" || bookings[1].SlotID != "late" {
		t.Errorf("unexpected court bookings %+v", bookings)
	}

	if _, err := svc.ListByCourt(ctx, "c1", model.BookingFilter{Range: model.DateRange{From: day, To: day}}); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for empty range, got %v", err)
	}
}

func TestListByCourt_StatusAndPeriod(t *testing.T) {
	svc, clock := newTestService()
	ctx := context.Background()
	now := clock.now

	_ = svc.RecordBooking(ctx, newBooking("yesterday", "u1", now.Add(-24*time.Hour)))
	_ = svc.RecordBooking(ctx, newBooking("this-morning", "u1", now.Add(-2*time.Hour)))
	_ = svc.RecordBooking(ctx, newBooking("tonight", "u2", now.Add(9*time.Hour)))
	_ = svc.RecordBooking(ctx, newBooking("tomorrow", "u3", now.Add(24*time.Hour)))
	cancelled := newBooking("next-week", "u4", now.Add(7*24*time.Hour))
	_ = svc.RecordBooking(ctx, cancelled)
	_, _ = svc.RecordCancellation(ctx, cancelled.ID)

	tests := []struct {
		name   string
		filter model.BookingFilter
		want   []string
	}{
		{"everything", model.BookingFilter{}, []string{"yesterday", "this-morning", "tonight", "tomorrow", "next-week"}},
		{"today", model.BookingFilter{Period: model.PeriodToday}, []string{"this-morning", "tonight"}},
		{"upcoming", model.BookingFilter{Period: model.PeriodUpcoming}, []string{"tomorrow", "next-week"}},
		{"past", model.BookingFilter{Period: model.PeriodPast}, []string{"yesterday"}},
		{"cancelled", model.BookingFilter{Status: model.BookingCancelled}, []string{"next-week"}},
		{"upcoming and still active", model.BookingFilter{Period: model.PeriodUpcoming, Status: model.BookingUpcoming}, []string{"tomorrow"}},
		{"period narrows range", model.BookingFilter{
			Period: model.PeriodUpcoming,
			Range:  model.DateRange{To: now.Add(48 * time.Hour)},
		}, []string{"tomorrow"}},
		{"disjoint range and period", model.BookingFilter{
			Period: model.PeriodPast,
			Range:  model.DateRange{From: now.Add(24 * time.Hour)},
		}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookings, err := svc.ListByCourt(ctx, "c1", tt.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := make([]string, 0, len(bookings))
			for _, b := range bookings {
				got = append(got, b.SlotID)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	for _, bad := range []model.BookingFilter{{Status: "paid"}, {Period: "someday"}} {
		if _, err := svc.ListByCourt(ctx, "c1", bad); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
			t.Errorf("expected INVALID_INPUT for %+v, got %v", bad, err)
		}
	}
}

func TestListByCourt_TodayFollowsClubZone(t *testing.T) {
	svc, clock := newTestService()
	ctx := context.Background()
	loc := time.FixedZone("UTC-10", -10*60*60)
	svc.(*bookingService).cfg.Location = loc

	// 09:00 UTC is 23:00 the previous evening in the club's zone.
	_ = svc.RecordBooking(ctx, newBooking("late-evening", "u1", clock.now.Add(-time.Hour)))
	_ = svc.RecordBooking(ctx, newBooking("after-midnight", "u2", clock.now.Add(2*time.Hour)))

	bookings, err := svc.ListByCourt(ctx, "c1", model.BookingFilter{Period: model.PeriodToday})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bookings) != 1 || bookings[0].SlotID != "late-evening" {
		t.Errorf("expected only the local-day booking, got %+v", bookings)
	}
}

func TestGetByReference(t *testing.T) {
	svc, clock := newTestService()
	ctx := context.Background()

	b := newBooking("s1", "u1", clock.now.Add(24*time.Hour))
	_ = svc.RecordBooking(ctx, b)

	found, err := svc.GetByReference(ctx, " "+strings.ToLower(b.Reference)+" ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != b.ID {
		t.Errorf("expected booking %s, got %s", b.ID, found.ID)
	}

	if _, err := svc.GetByReference(ctx, "BKNG00000000"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if _, err := svc.GetByReference(ctx, "  "); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}
