package repository

import (
	"context"
	bookingserrors "courtbook/internal/bookings/errors"
	"courtbook/pkg/model"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*model.Booking
}

func NewMemoryBookingRepository() BookingRepository {
	return &memoryBookingRepository{bookings: make(map[string]*model.Booking)}
}

func (r *memoryBookingRepository) Create(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.bookings {
		if b.Reference == booking.Reference {
			return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateReference, booking.Reference)
		}
		if booking.Status == model.BookingUpcoming && b.SlotID == booking.SlotID && b.Status == model.BookingUpcoming {
			return fmt.Errorf("%w: %s", bookingserrors.ErrActiveExists, booking.SlotID)
		}
	}
	r.bookings[booking.ID] = booking.Clone()
	return nil
}

func (r *memoryBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
	}
	return b.Clone(), nil
}

func (r *memoryBookingRepository) FindByReference(_ context.Context, reference string) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bookings {
		if b.Reference == reference {
			return b.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, reference)
}

func (r *memoryBookingRepository) FindActiveBySlot(_ context.Context, slotID string) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bookings {
		if b.SlotID == slotID && b.Status == model.BookingUpcoming {
			return b.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, slotID)
}

func (r *memoryBookingRepository) FindByUser(_ context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	result := r.filter(func(b *model.Booking) bool { return b.UserID == userID })
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if offset >= int64(len(result)) {
		return []*model.Booking{}, nil
	}
	end := min(offset+int64(limit), int64(len(result)))
	return result[offset:end], nil
}

func (r *memoryBookingRepository) CountByUser(_ context.Context, userID string) (int64, error) {
	return int64(len(r.filter(func(b *model.Booking) bool { return b.UserID == userID }))), nil
}

func (r *memoryBookingRepository) FindByCourt(_ context.Context, courtID string, f model.BookingFilter) ([]*model.Booking, error) {
	result := r.filter(func(b *model.Booking) bool {
		return b.CourtID == courtID && f.Matches(b)
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].StartTime.Before(result[j].StartTime)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *memoryBookingRepository) FindEndedUpcoming(_ context.Context, before time.Time) ([]*model.Booking, error) {
	result := r.filter(func(b *model.Booking) bool {
		return b.Status == model.BookingUpcoming && !b.EndTime.After(before)
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].EndTime.Before(result[j].EndTime)
	})
	return result, nil
}

func (r *memoryBookingRepository) UpdateStatus(_ context.Context, from model.BookingStatus, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[booking.ID]
	if !ok {
		return fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, booking.ID)
	}
	if stored.Status != from {
		return fmt.Errorf("%w: %s is no longer %s", bookingserrors.ErrStatusMismatch, booking.ID, from)
	}
	if booking.Status == model.BookingUpcoming {
		for _, b := range r.bookings {
			if b.ID != booking.ID && b.SlotID == stored.SlotID && b.Status == model.BookingUpcoming {
				return fmt.Errorf("%w: %s", bookingserrors.ErrActiveExists, stored.SlotID)
			}
		}
	}

	stored.Status = booking.Status
	stored.PaymentStatus = booking.PaymentStatus
	stored.CancelledAt = booking.CancelledAt
	stored.CompletedAt = booking.CompletedAt
	return nil
}

func (r *memoryBookingRepository) filter(keep func(*model.Booking) bool) []*model.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*model.Booking{}
	for _, b := range r.bookings {
		if keep(b) {
			result = append(result, b.Clone())
		}
	}
	return result
}
