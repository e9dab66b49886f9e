package model

import "time"

// SlotLock is an advisory lock document serializing work on one slot across
// service instances. Owner is a random token so only the holder can release it.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
