package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RoleStaff is the role claim carried by host-stand and manager tokens.
const RoleStaff = "STAFF"

// RequireRole aborts with 403 unless the role stored by JWTAuth is one of
// roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[Role(c)] {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
