package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/hold"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/model"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/utils"
)

// HoldService is implemented by *hold.Store.
type HoldService interface {
	CreateHold(ctx context.Context, date, clock string, tableIDs []string, userID string, ttl time.Duration) (*model.Hold, error)
	GetHoldByID(ctx context.Context, id string) *model.Hold
	ExtendHold(ctx context.Context, id string, ttl time.Duration) *model.Hold
	ReleaseHold(ctx context.Context, id string) bool
	ListHoldsForSlot(ctx context.Context, date, clock string) []model.Hold
}

// TableLookup resolves table IDs against the floor plan.
type TableLookup interface {
	GetTablesByIDs(ctx context.Context, ids []string) ([]model.Table, error)
}

// HoldHandler exposes table holds to the booking flow.  All routes except
// Beacon expect JWTAuth to have run.  When Tables is set, holds on unknown
// or inactive tables are rejected.
type HoldHandler struct {
	Holds  HoldService
	Tables TableLookup
	Log    *zap.Logger
}

type createHoldRequest struct {
	Date       string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time       string   `json:"time" validate:"required,datetime=15:04"`
	TableIDs   []string `json:"table_ids" validate:"required,min=1,max=8,dive,required"`
	TTLSeconds int      `json:"ttl_seconds" validate:"gte=0"`
}

type extendHoldRequest struct {
	TTLSeconds int `json:"ttl_seconds" validate:"gte=0"`
}

type slotQuery struct {
	Date string `query:"date" validate:"required,datetime=2006-01-02"`
	Time string `query:"time" validate:"required,datetime=15:04"`
}

// CreateHold handles POST /v1/holds.  A conflict answers 409 with the taken
// tables and refresh=true so the client reloads availability.
func (h *HoldHandler) CreateHold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body createHoldRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if errs := utils.ValidateStruct(body); errs != nil {
		return validationFailed(c, errs)
	}

	if h.Tables != nil {
		unknown, err := h.unknownTables(c.Request().Context(), body.TableIDs)
		if err != nil {
			utils.OrNop(h.Log).Error("table lookup failed", zap.Error(err))
			return internalError(c, "database error")
		}
		if len(unknown) > 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown tables", "table_ids": unknown})
		}
	}

	held, err := h.Holds.CreateHold(c.Request().Context(), body.Date, body.Time, body.TableIDs, userID, seconds(body.TTLSeconds))
	var conflict *hold.ConflictError
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, held)
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "tables_already_held",
			"table_ids": conflict.TableIDs,
			"refresh":   true,
		})
	case errors.Is(err, hold.ErrInvalidHoldParameters), errors.Is(err, utils.ErrMalformedTimeInput):
		return badRequest(c, err.Error())
	default:
		utils.OrNop(h.Log).Error("create hold failed", zap.String("user_id", userID), zap.Error(err))
		return internalError(c, "failed to create hold")
	}
}

func (h *HoldHandler) unknownTables(ctx context.Context, ids []string) ([]string, error) {
	ids = hold.NormalizeTableIDs(ids)
	tables, err := h.Tables.GetTablesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	active := make(map[string]bool, len(tables))
	for _, t := range tables {
		active[t.ID] = t.IsActive
	}
	var unknown []string
	for _, id := range ids {
		if !active[id] {
			unknown = append(unknown, id)
		}
	}
	return unknown, nil
}

// GetHold handles GET /v1/holds/:id.  Only the owner or staff may read it.
func (h *HoldHandler) GetHold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	held := h.Holds.GetHoldByID(c.Request().Context(), c.Param("id"))
	if held == nil {
		return notFound(c, "hold")
	}
	if held.UserID != userID && !isStaff(c) {
		return forbidden(c)
	}
	return c.JSON(http.StatusOK, held)
}

// ListHolds handles GET /v1/holds?date=&time= for the host stand.
func (h *HoldHandler) ListHolds(c echo.Context) error {
	var q slotQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return badRequest(c, "invalid query parameters")
	}
	if errs := utils.ValidateStruct(q); errs != nil {
		return validationFailed(c, errs)
	}
	holds := h.Holds.ListHoldsForSlot(c.Request().Context(), q.Date, q.Time)
	if holds == nil {
		holds = []model.Hold{}
	}
	return c.JSON(http.StatusOK, echo.Map{"holds": holds})
}

// ExtendHold handles POST /v1/holds/:id/extend.
func (h *HoldHandler) ExtendHold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body extendHoldRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if errs := utils.ValidateStruct(body); errs != nil {
		return validationFailed(c, errs)
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	current := h.Holds.GetHoldByID(ctx, id)
	if current == nil {
		return notFound(c, "hold")
	}
	if current.UserID != userID {
		return forbidden(c)
	}
	extended := h.Holds.ExtendHold(ctx, id, seconds(body.TTLSeconds))
	if extended == nil {
		return notFound(c, "hold")
	}
	return c.JSON(http.StatusOK, extended)
}

// ReleaseHold handles DELETE /v1/holds/:id.  Releasing an unknown or
// already released hold answers released=false rather than 404.
func (h *HoldHandler) ReleaseHold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	if current := h.Holds.GetHoldByID(ctx, id); current != nil && current.UserID != userID && !isStaff(c) {
		return forbidden(c)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": h.Holds.ReleaseHold(ctx, id)})
}

// Beacon handles POST /v1/holds/:id/beacon, sent by navigator.sendBeacon
// when the booking page closes.  Beacons cannot carry an Authorization
// header, so the posted user_id must match the hold's owner.  Any readable
// beacon gets 204 so the endpoint does not reveal which holds exist.
func (h *HoldHandler) Beacon(c echo.Context) error {
	var body struct {
		UserID string `json:"user_id" form:"user_id"`
	}
	if err := c.Bind(&body); err != nil {
		// Beacons sent as plain strings arrive as text/plain; those carry
		// user_id in the query string instead.
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusUnsupportedMediaType {
			return badRequest(c, "invalid request body")
		}
	}
	if body.UserID == "" {
		body.UserID = c.FormValue("user_id")
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	if current := h.Holds.GetHoldByID(ctx, id); current != nil && body.UserID != "" && current.UserID == body.UserID {
		if h.Holds.ReleaseHold(ctx, id) {
			utils.OrNop(h.Log).Debug("hold released by beacon", zap.String("hold_id", id))
		}
	}
	return c.NoContent(http.StatusNoContent)
}
