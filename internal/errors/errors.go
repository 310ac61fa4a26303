package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrNotFound - unknown session or librarian (404 to the client)
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput - empty or oversized message, missing field (400, never retried)
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstream - bot backend or messaging channel unreachable (recovered locally)
	ErrUpstream = errors.New("upstream failure")

	// ErrPermissionDenied - sender is not on the librarian allow-list
	ErrPermissionDenied = errors.New("permission denied")

	// ErrConflict - operation not legal for the current state (already authorized, closed session)
	ErrConflict = errors.New("conflict")

	// ErrInternal - anything else
	ErrInternal = errors.New("internal error")
)
