package errors

import "errors"

var (
	ErrNotFound = errors.New("waiting list entry not found")

	ErrAlreadyQueued = errors.New("user already queued for slot")
)
