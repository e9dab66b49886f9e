package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	// ErrStatusMismatch means the slot was not in the state a transition
	// expected when it tried to apply.
	ErrStatusMismatch = errors.New("slot state changed")

	ErrDuplicate = errors.New("slot already exists")
)
