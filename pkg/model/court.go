package model

import "time"

type CourtCategory string

const (
	CategoryIndoor  CourtCategory = "Indoor"
	CategoryOutdoor CourtCategory = "Outdoor"
)

type Court struct {
	ID          string        `json:"id" bson:"_id" validate:"omitempty,uuid4"`
	Name        string        `json:"name" bson:"name" validate:"required,min=2,max=100"`
	NameKey     string        `json:"-" bson:"name_key"`
	Category    CourtCategory `json:"category" bson:"category" validate:"required,oneof=Indoor Outdoor"`
	HourlyPrice int64         `json:"hourly_price" bson:"hourly_price" validate:"min=0,max=10000000"`
	Features    []string      `json:"features" bson:"features" validate:"omitempty,max=20,dive,required,min=2,max=50"`
	Capacity    int           `json:"capacity" bson:"capacity" validate:"required,min=1,max=24"`
	Description string        `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=500"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" bson:"updated_at"`
}

type CourtUpdate struct {
	Name        string        `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Category    CourtCategory `json:"category,omitempty" validate:"omitempty,oneof=Indoor Outdoor"`
	HourlyPrice *int64        `json:"hourly_price,omitempty" validate:"omitempty,min=0,max=10000000"`
	Features    *[]string     `json:"features,omitempty" validate:"omitempty,max=20,dive,required,min=2,max=50"`
	Capacity    *int          `json:"capacity,omitempty" validate:"omitempty,min=1,max=24"`
	Description *string       `json:"description,omitempty" validate:"omitempty,max=500"`
}

// PriceFor returns the price of playing on the court for d, rounded down to
// the minor unit.
func (c *Court) PriceFor(d time.Duration) int64 {
	return c.HourlyPrice * int64(d/time.Minute) / 60
}

func (c *Court) Clone() *Court {
	cp := *c
	cp.Features = append([]string(nil), c.Features...)
	return &cp
}
