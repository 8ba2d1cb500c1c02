package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotConfigured marks an optional collaborator that was not wired.
	ErrNotConfigured = errors.New("not configured")
	// ErrMalformedEvent marks a change notification that cannot be decoded.
	// Such events are dropped, never retried.
	ErrMalformedEvent = errors.New("malformed event")
)
