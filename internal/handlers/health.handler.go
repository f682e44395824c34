package handlers

import (
	"context"

	"github.com/fasthttp/router"
	xhttp "github.com/nimasrn/webhook-intake/pkg/http"
)

type HealthService interface {
	Ready(ctx context.Context) error
}

type HealthHandler struct {
	healthService HealthService
}

func RegisterHealthRoutes(r *router.Router, h *HealthHandler) {
	r.GET("/health/live", h.GetLive)
	r.GET("/health/ready", h.GetReady)
}

func NewHealthHandler(healthService HealthService) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

// GetLive only proves the process is up.
func (h *HealthHandler) GetLive(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, xhttp.StatusOK, map[string]string{"status": "alive"})
}

func (h *HealthHandler) GetReady(ctx *xhttp.RequestCtx) {
	if err := h.healthService.Ready(ctx); err != nil {
		writeJSON(ctx, xhttp.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": err.Error(),
		})
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]string{"status": "ready"})
}
