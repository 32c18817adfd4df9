package handler // package handler contains the HTTP handlers for the public API

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/middleware"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/utils"
)

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func validationFailed(c echo.Context, errs map[string]string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"error":   "validation failed",
		"fields":  errs,
		"message": utils.FormatValidationErrors(errs),
	})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
}

func notFound(c echo.Context, what string) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
}

func internalError(c echo.Context, msg string) error {
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

// getUserID returns the subject set by JWTAuth or an error when absent.
func getUserID(c echo.Context) (string, error) {
	uid := middleware.UserID(c)
	if uid == "" {
		return "", echo.ErrUnauthorized
	}
	return uid, nil
}

func isStaff(c echo.Context) bool {
	return middleware.Role(c) == middleware.RoleStaff
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// splitIDs parses a comma separated id list, dropping blanks.
func splitIDs(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
