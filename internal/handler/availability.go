package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/model"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/utils"
)

// AvailabilityService computes free tables and combinations for a slot.
type AvailabilityService interface {
	GetAvailability(ctx context.Context, date, clock string, partySize int) (*model.AvailabilityResult, error)
}

// AvailabilityHandler serves the public availability search.
type AvailabilityHandler struct {
	Engine AvailabilityService
	Log    *zap.Logger
}

type availabilityQuery struct {
	Date      string `query:"date" validate:"required,datetime=2006-01-02"`
	Time      string `query:"time" validate:"required,datetime=15:04"`
	PartySize int    `query:"party_size" validate:"required,gt=0,max=50"`
}

// GetAvailability handles GET /v1/availability?date=&time=&party_size=.
func (h *AvailabilityHandler) GetAvailability(c echo.Context) error {
	var q availabilityQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return badRequest(c, "invalid query parameters")
	}
	if errs := utils.ValidateStruct(q); errs != nil {
		return validationFailed(c, errs)
	}

	res, err := h.Engine.GetAvailability(c.Request().Context(), q.Date, q.Time, q.PartySize)
	if err != nil {
		if errors.Is(err, utils.ErrMalformedTimeInput) {
			return badRequest(c, "malformed date or time")
		}
		utils.OrNop(h.Log).Error("availability failed",
			zap.String("date", q.Date), zap.String("time", q.Time), zap.Error(err))
		return internalError(c, "failed to compute availability")
	}
	return c.JSON(http.StatusOK, res)
}
