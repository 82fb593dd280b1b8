package repositories

import "errors"

var (
	// ErrRecordNotFound is returned when no row matches the lookup. For owner-scoped
	// store lookups this also covers rows that exist but belong to someone else.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when the users.email unique index rejects a write.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateReviewPID is returned when another active store already carries the
	// Google review PID.
	ErrDuplicateReviewPID = errors.New("google review pid already in use")
)
