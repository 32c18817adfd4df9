package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RedisPinger reports whether Redis answers.  Wrapping the client keeps the
// handler free of go-redis types.
type RedisPinger func(ctx context.Context) error

// HealthHandler reports dependency status for load balancers.  The database
// is required; Redis is reported but a Redis outage only marks the service
// degraded, because holds fall back to in-process state.
type HealthHandler struct {
	DB    Pinger
	Redis RedisPinger
}

// Health handles GET /healthz.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second)
	defer cancel()

	body := echo.Map{"status": "ok", "database": "up", "redis": "disabled"}
	status := http.StatusOK
	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			body["database"] = "down"
			body["status"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	if h.Redis != nil {
		body["redis"] = "up"
		if err := h.Redis(ctx); err != nil {
			body["redis"] = "down"
			if status == http.StatusOK {
				body["status"] = "degraded"
			}
		}
	}
	return c.JSON(status, body)
}
