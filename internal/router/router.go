package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/handler"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/middleware"
)

// Handlers collects everything RegisterRoutes mounts.  RateLimit and Cache
// may be nil, in which case those routes run without them.
type Handlers struct {
	JWTSecret    string
	Health       *handler.HealthHandler
	Availability *handler.AvailabilityHandler
	Tables       *handler.TableHandler
	Holds        *handler.HoldHandler
	SeatLocks    *handler.SeatLockHandler
	RateLimit    echo.MiddlewareFunc
	Cache        echo.MiddlewareFunc
}

// RegisterRoutes mounts the public and authenticated API.  Reads that the
// booking page makes before sign-in (availability, floor plan, seat map)
// are public; everything that claims or releases tables needs a token.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", h.Health.Health)

	e.GET("/v1/availability", h.Availability.GetAvailability)
	e.GET("/v1/tables", h.Tables.ListTables, optional(h.Cache)...)
	e.GET("/v1/seats/locks", h.SeatLocks.ListLocks)
	// sendBeacon cannot set Authorization; the handler checks the posted owner.
	e.POST("/v1/holds/:id/beacon", h.Holds.Beacon)

	auth := e.Group("/v1", middleware.JWTAuth(h.JWTSecret))
	limited := optional(h.RateLimit)

	auth.GET("/holds", h.Holds.ListHolds, middleware.RequireRole(middleware.RoleStaff))
	auth.POST("/holds", h.Holds.CreateHold, limited...)
	auth.GET("/holds/:id", h.Holds.GetHold)
	auth.POST("/holds/:id/extend", h.Holds.ExtendHold)
	auth.DELETE("/holds/:id", h.Holds.ReleaseHold)

	auth.POST("/seats/:id/lock", h.SeatLocks.Lock, limited...)
	auth.DELETE("/seats/:id/lock", h.SeatLocks.Unlock)
}

func optional(m echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if m == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m}
}
