package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/model"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/utils"
)

// TableLister returns the floor plan.
type TableLister interface {
	ListTables(ctx context.Context, activeOnly bool) ([]model.Table, error)
}

// TableHandler serves the floor plan the seat map is drawn from.
type TableHandler struct {
	Tables TableLister
	Log    *zap.Logger
}

// ListTables handles GET /v1/tables.  Inactive tables are omitted.
func (h *TableHandler) ListTables(c echo.Context) error {
	tables, err := h.Tables.ListTables(c.Request().Context(), true)
	if err != nil {
		utils.OrNop(h.Log).Error("list tables failed", zap.Error(err))
		return internalError(c, "database error")
	}
	if tables == nil {
		tables = []model.Table{}
	}
	return c.JSON(http.StatusOK, echo.Map{"tables": tables})
}
