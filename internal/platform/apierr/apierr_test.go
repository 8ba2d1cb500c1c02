package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	apperrors "github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/errors"
)

func TestFrom(t *testing.T) {
	custom := New(http.StatusConflict, "busy", errors.New("sweep running"))
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("load: %w", apperrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{"invalid", apperrors.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
		{"not configured", fmt.Errorf("sweeper: %w", apperrors.ErrNotConfigured), http.StatusServiceUnavailable, "not_configured"},
		{"wrapped api error", fmt.Errorf("outer: %w", custom), http.StatusConflict, "busy"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "sweep_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := From(tc.err, http.StatusInternalServerError, "sweep_failed")
			if got.Status != tc.status || got.Code != tc.code {
				t.Fatalf("From() = %d/%s, want %d/%s", got.Status, got.Code, tc.status, tc.code)
			}
			if !errors.Is(got, tc.err) && !errors.Is(tc.err, got) {
				t.Fatalf("From() lost the original error")
			}
		})
	}
	if From(nil, 500, "x") != nil {
		t.Fatalf("From(nil) should be nil")
	}
}
