package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthChecker reports whether a backing service is usable.
type HealthChecker interface {
	IsHealthy() bool
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	checks []HealthChecker
}

// NewHealthHandler creates a HealthHandler. With no checks it always reports OK.
func NewHealthHandler(checks ...HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Health(c echo.Context) error {
	for _, check := range h.checks {
		if !check.IsHealthy() {
			return c.String(http.StatusServiceUnavailable, "UNAVAILABLE")
		}
	}
	return c.String(http.StatusOK, "OK")
}
