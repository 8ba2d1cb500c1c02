// Package apierr attaches an HTTP status and a stable code to service errors.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/errors"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// From classifies err by the shared sentinels. An *Error already in the
// chain wins; anything unrecognised gets the fallback status and code.
func From(err error, fallbackStatus int, fallbackCode string) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, apperrors.ErrInvalidArgument):
		return New(http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, apperrors.ErrNotConfigured):
		return New(http.StatusServiceUnavailable, "not_configured", err)
	default:
		return New(fallbackStatus, fallbackCode, err)
	}
}
