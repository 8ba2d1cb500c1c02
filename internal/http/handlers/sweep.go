package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/http/response"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/services"
)

type SweepHandler struct {
	sweeper services.InstanceSweeper
}

func NewSweepHandler(sweeper services.InstanceSweeper) *SweepHandler {
	return &SweepHandler{sweeper: sweeper}
}

// POST /internal/sweeps
func (h *SweepHandler) Trigger(c *gin.Context) {
	res, err := h.sweeper.Sweep(c.Request.Context(), types.SweepTriggerHTTP)
	if err != nil {
		response.RespondAPIError(c, err, http.StatusInternalServerError, "sweep_failed")
		return
	}
	response.RespondOK(c, gin.H{"sweep": res})
}

// GET /internal/sweeps/latest
func (h *SweepHandler) Latest(c *gin.Context) {
	run, err := h.sweeper.Latest(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err, http.StatusInternalServerError, "sweep_lookup_failed")
		return
	}
	if run == nil {
		response.RespondError(c, http.StatusNotFound, "no_sweep_yet", errors.New("no sweep has run yet"))
		return
	}
	response.RespondOK(c, gin.H{"sweep_run": run})
}
