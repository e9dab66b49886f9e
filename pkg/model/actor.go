package model

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RolePlayer Role = "player"
)

// Actor is the caller identity supplied by the identity collaborator.
type Actor struct {
	UserID string `json:"user_id" validate:"required,max=100"`
	Role   Role   `json:"role" validate:"required,oneof=admin player"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// HoldToken is handed to the caller of a successful hold and redeemed by confirm.
type HoldToken struct {
	Token     string    `json:"token"`
	SlotID    string    `json:"slot_id"`
	UserID    string    `json:"user_id"`
	Price     int64     `json:"price"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PaymentResult is the outcome reported by the payment collaborator.
type PaymentResult struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
