package errors

import "errors"

var (
	ErrNotFound = errors.New("court not found")

	ErrDuplicateName = errors.New("court name already exists")
)
