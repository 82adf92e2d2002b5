package handlers

import (
	"context"

	xhttp "github.com/nimasrn/lead-crm/pkg/http"
	"github.com/nimasrn/lead-crm/pkg/logger"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]HealthCheck
}

func RegisterHealthRoutes(e *xhttp.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		checks: checks,
	}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	status := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			logger.Warn("[health] check failed", "dependency", name, "error", err)
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		writeJSON(ctx, xhttp.StatusServiceUnavailable, envelope{Message: "degraded", Data: status})
		return
	}
	writeOK(ctx, xhttp.StatusOK, "success", status)
}
