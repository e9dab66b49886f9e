package model

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotHeld      SlotStatus = "held"
	SlotBooked    SlotStatus = "booked"
)

type Slot struct {
	ID            string     `json:"id" bson:"_id"`
	CourtID       string     `json:"court_id" bson:"court_id"`
	Date          string     `json:"date" bson:"date"`
	StartTime     time.Time  `json:"start_time" bson:"start_time"`
	EndTime       time.Time  `json:"end_time" bson:"end_time"`
	Price         int64      `json:"price" bson:"price"`
	Status        SlotStatus `json:"status" bson:"status"`
	HeldBy        string     `json:"held_by,omitempty" bson:"held_by,omitempty"`
	HoldToken     string     `json:"-" bson:"hold_token,omitempty"`
	HoldExpiresAt time.Time  `json:"hold_expires_at,omitempty" bson:"hold_expires_at,omitempty"`
	BookingID     string     `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	BookedBy      string     `json:"booked_by,omitempty" bson:"booked_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

// SlotHold carries the fields written when a slot moves to held.
type SlotHold struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// TimeRange is a wall-clock range ("18:00"-"20:00") on a slot's date.
type TimeRange struct {
	Start string `json:"start" validate:"required,clock"`
	End   string `json:"end" validate:"required,clock"`
}

// SlotID derives the slot identifier from its court and start time.
func SlotID(courtID string, start time.Time) string {
	return fmt.Sprintf("%s-%s-%s", courtID, start.Format(DateLayout), start.Format("1504"))
}

func (s *Slot) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// HoldExpired reports whether the slot is held and its hold is no longer valid at now.
func (s *Slot) HoldExpired(now time.Time) bool {
	return s.Status == SlotHeld && !now.Before(s.HoldExpiresAt)
}

func (s *Slot) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && s.EndTime.After(start)
}

func (s *Slot) Clone() *Slot {
	c := *s
	return &c
}

// SlotDefinition is an admin request to open slots on one court and date.
type SlotDefinition struct {
	Date   string      `json:"date" validate:"required,datetime=2006-01-02"`
	Ranges []TimeRange `json:"ranges" validate:"required,min=1,max=24,dive"`
}
