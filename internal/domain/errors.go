package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound         = errors.New("domain: not found")
	ErrInvalidInput     = errors.New("domain: invalid input")
	ErrStoreUnavailable = errors.New("domain: store unavailable")
)
