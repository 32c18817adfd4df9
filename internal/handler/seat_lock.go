package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/model"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/repository"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/seatlock"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/utils"
)

// SeatLocker is implemented by *seatlock.Locker.
type SeatLocker interface {
	Lock(ctx context.Context, seatID, userID string, ttl time.Duration) (*model.SeatLock, error)
	Release(ctx context.Context, seatID, lockID string) bool
	List(ctx context.Context, seatIDs []string) []model.SeatLock
}

// TableGetter looks up one table.
type TableGetter interface {
	GetTable(ctx context.Context, id string) (*model.Table, error)
}

// SeatLockHandler backs the live seat map.  When Tables is set, locks on
// tables missing from the floor plan answer 404.
type SeatLockHandler struct {
	Locks  SeatLocker
	Tables TableGetter
	Log    *zap.Logger
}

// maxSeatLookup bounds GET /v1/seats/locks.
const maxSeatLookup = 200

// ListLocks handles GET /v1/seats/locks?ids=a,b.  Lock tokens are blanked
// since holding one is what authorises a release.
func (h *SeatLockHandler) ListLocks(c echo.Context) error {
	ids := splitIDs(c.QueryParam("ids"))
	if len(ids) == 0 {
		return badRequest(c, "ids is required")
	}
	if len(ids) > maxSeatLookup {
		return badRequest(c, "too many ids")
	}
	locks := h.Locks.List(c.Request().Context(), ids)
	if locks == nil {
		locks = []model.SeatLock{}
	}
	for i := range locks {
		locks[i].LockID = ""
	}
	return c.JSON(http.StatusOK, echo.Map{"locks": locks})
}

// Lock handles POST /v1/seats/:id/lock.
func (h *SeatLockHandler) Lock(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body struct {
		TTLSeconds int `json:"ttl_seconds" validate:"gte=0"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if errs := utils.ValidateStruct(body); errs != nil {
		return validationFailed(c, errs)
	}
	if h.Tables != nil {
		if _, err := h.Tables.GetTable(c.Request().Context(), c.Param("id")); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound(c, "table")
			}
			utils.OrNop(h.Log).Error("table lookup failed", zap.Error(err))
			return internalError(c, "database error")
		}
	}
	lock, err := h.Locks.Lock(c.Request().Context(), c.Param("id"), userID, seconds(body.TTLSeconds))
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, lock)
	case errors.Is(err, seatlock.ErrSeatLocked):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat_locked", "refresh": true})
	case errors.Is(err, seatlock.ErrInvalidParameters):
		return badRequest(c, err.Error())
	default:
		utils.OrNop(h.Log).Error("seat lock failed", zap.String("seat_id", c.Param("id")), zap.Error(err))
		return internalError(c, "failed to lock seat")
	}
}

// Unlock handles DELETE /v1/seats/:id/lock with {"lock_id": "..."}.
func (h *SeatLockHandler) Unlock(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return unauthorized(c)
	}
	var body struct {
		LockID string `json:"lock_id" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if errs := utils.ValidateStruct(body); errs != nil {
		return validationFailed(c, errs)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": h.Locks.Release(c.Request().Context(), c.Param("id"), body.LockID)})
}
