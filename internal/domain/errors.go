package domain

import "errors"

var (
	// ErrNotFound covers both a genuinely missing record and an ownership
	// mismatch: callers must not be able to tell the two apart.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
)
