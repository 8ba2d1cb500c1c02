package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	httpH "github.com/hzi-braunschweig/pia-system-sub012/internal/http/handlers"
	apperrors "github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/errors"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/services"
)

type stubSweeper struct {
	err      error
	latest   *types.SweepRun
	triggers []string
}

func (s *stubSweeper) Sweep(_ context.Context, trigger string) (*services.SweepResult, error) {
	s.triggers = append(s.triggers, trigger)
	if s.err != nil {
		return nil, s.err
	}
	return &services.SweepResult{Trigger: trigger, Activated: 3}, nil
}

func (s *stubSweeper) Latest(context.Context) (*types.SweepRun, error) { return s.latest, nil }

func newTestRouter(t *testing.T, sweeper services.InstanceSweeper, ready httpH.ReadyFunc) nethttp.Handler {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return NewRouter(RouterConfig{
		Log:           log,
		ServiceName:   "scheduler-test",
		HealthHandler: httpH.NewHealthHandler(ready),
		SweepHandler:  httpH.NewSweepHandler(sweeper),
	})
}

func serve(h nethttp.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthAndReadiness(t *testing.T) {
	h := newTestRouter(t, &stubSweeper{}, func(context.Context) error { return nil })
	rec := serve(h, nethttp.MethodGet, "/healthcheck")
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, nethttp.StatusOK, serve(h, nethttp.MethodGet, "/readyz").Code)

	down := newTestRouter(t, &stubSweeper{}, func(context.Context) error { return errors.New("db down") })
	rec = serve(down, nethttp.MethodGet, "/readyz")
	assert.Equal(t, nethttp.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

func TestTriggerSweep(t *testing.T) {
	s := &stubSweeper{}
	rec := serve(newTestRouter(t, s, nil), nethttp.MethodPost, "/internal/sweeps")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var body struct {
		Sweep services.SweepResult `json:"sweep"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Sweep.Activated)
	assert.Equal(t, []string{types.SweepTriggerHTTP}, s.triggers)

	failing := &stubSweeper{err: errors.New("boom")}
	rec = serve(newTestRouter(t, failing, nil), nethttp.MethodPost, "/internal/sweeps")
	assert.Equal(t, nethttp.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "sweep_failed")

	unwired := &stubSweeper{err: fmt.Errorf("sweep: %w", apperrors.ErrNotConfigured)}
	rec = serve(newTestRouter(t, unwired, nil), nethttp.MethodPost, "/internal/sweeps")
	assert.Equal(t, nethttp.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_configured")
}

func TestLatestSweep(t *testing.T) {
	rec := serve(newTestRouter(t, &stubSweeper{}, nil), nethttp.MethodGet, "/internal/sweeps/latest")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)

	run := &types.SweepRun{ID: uuid.New(), Status: types.SweepStatusSucceeded, Trigger: types.SweepTriggerTicker}
	rec = serve(newTestRouter(t, &stubSweeper{latest: run}, nil), nethttp.MethodGet, "/internal/sweeps/latest")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var body struct {
		Run types.SweepRun `json:"sweep_run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, run.ID, body.Run.ID)
	assert.Equal(t, types.SweepStatusSucceeded, body.Run.Status)
}
