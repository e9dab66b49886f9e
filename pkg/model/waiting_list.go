package model

import "time"

type WaitingListEntry struct {
	ID          string    `json:"id" bson:"_id"`
	SlotID      string    `json:"slot_id" bson:"slot_id" validate:"required"`
	UserID      string    `json:"user_id" bson:"user_id" validate:"required,max=100"`
	RequestedAt time.Time `json:"requested_at" bson:"requested_at"`
	Position    int       `json:"position" bson:"position"`
	// Seq records insertion order; it breaks requested_at ties.
	Seq int64 `json:"-" bson:"seq"`
}

func (e *WaitingListEntry) Clone() *WaitingListEntry {
	c := *e
	return &c
}
