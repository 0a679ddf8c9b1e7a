package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when the unique constraint on email is
	// violated; it backs the registration race described in the design.
	ErrDuplicateEmail = errors.New("account with this email already exists")

	// ErrStaleRefreshToken is returned by RotateRefreshToken when the stored
	// token no longer matches the presented one. Concurrent rotations on the
	// same token: at most one wins, the rest get this.
	ErrStaleRefreshToken = errors.New("stored refresh token does not match")
)
