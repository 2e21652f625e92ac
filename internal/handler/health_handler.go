package handler

import (
	"context"
	"net/http"

	"github.com/Eursukkul/carpark-service/internal/dto"
	"github.com/Eursukkul/carpark-service/internal/logging"
	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	service string
	ping    func(ctx context.Context) error
}

// NewHealthHandler reports on the database through ping. A nil ping means
// the service runs without a database.
func NewHealthHandler(service string, ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{service: service, ping: ping}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Check)
}

func (h *HealthHandler) Check(c echo.Context) error {
	resp := dto.HealthResponse{Status: "ok", Service: h.service, Database: "not configured"}
	code := http.StatusOK

	if h.ping != nil {
		resp.Database = "healthy"
		if err := h.ping(c.Request().Context()); err != nil {
			logging.Warn(c.Request().Context()).Err(err).Msg("database health check failed")
			resp.Status = "degraded"
			resp.Database = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	return c.JSON(code, resp)
}
