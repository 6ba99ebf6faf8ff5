package models

import "errors"

var (
	// ErrNotFound indicates the referenced entity does not exist in the
	// caller's org. Cross-org references surface as not-found, never as
	// forbidden.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a create collided with an existing natural key.
	ErrConflict = errors.New("already exists")
)
