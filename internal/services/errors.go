package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	// Credential errors.
	ErrDuplicateEmail     = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Authentication gate errors. Callers see one generic failure for all of these
	// except ErrTokenExpired.
	ErrMissingToken    = errors.New("authorization header is required")
	ErrMalformedHeader = errors.New("authorization header format must be 'Bearer <token>'")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenInvalid    = errors.New("token invalid")
	ErrUnknownSubject  = errors.New("token subject no longer exists")

	// ErrForbidden means no identity reached a handler that needs one.
	ErrForbidden = errors.New("forbidden")

	// Store errors.
	ErrInvalidID          = errors.New("invalid store id")
	ErrStoreNotFound      = errors.New("store not found")
	ErrDuplicateReviewPID = errors.New("a store with this Google Review PID already exists")
)

// IsAuthenticationError reports whether err is one of the gate failures.
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrMalformedHeader) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrUnknownSubject)
}

// ValidationError carries one message per offending input field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
