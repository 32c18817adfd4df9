package middleware

// identity.go holds the helpers handlers and middleware use to read the
// authenticated caller from the Echo context.

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// UserID returns the subject stored by JWTAuth, or "" for anonymous requests.
func UserID(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok {
		return s
	}
	return ""
}

// Role returns the role claim stored by JWTAuth, or "".
func Role(c echo.Context) string {
	if s, ok := c.Get("role").(string); ok {
		return s
	}
	return ""
}

// userID is the rate-limit and cache key form of the caller: the subject
// when known, falling back to the raw token claims and then "guest".
func userID(c echo.Context) string {
	if s := UserID(c); s != "" {
		return s
	}
	if tok, ok := c.Get("user").(*jwt.Token); ok {
		if cl, ok := tok.Claims.(jwt.MapClaims); ok {
			if v := subject(cl); v != "" {
				return v
			}
		}
	}
	return "guest"
}
