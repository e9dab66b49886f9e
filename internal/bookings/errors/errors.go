package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	// ErrActiveExists means the slot already has an upcoming booking.
	ErrActiveExists = errors.New("slot already has an upcoming booking")

	ErrDuplicateReference = errors.New("booking reference already used")

	ErrStatusMismatch = errors.New("booking status changed")
)
