package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/availability"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/handler"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/hold"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/queue"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/seatlock"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/utils"
)

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	outbox := queue.NewOutbox(16, nil)
	store := hold.NewStore(nil, outbox, nil, hold.Config{})
	RegisterRoutes(e, Handlers{
		JWTSecret:    "router-secret",
		Health:       &handler.HealthHandler{},
		Availability: &handler.AvailabilityHandler{Engine: &availability.Engine{Holds: store}},
		Tables:       &handler.TableHandler{},
		Holds:        &handler.HoldHandler{Holds: store},
		SeatLocks:    &handler.SeatLockHandler{Locks: seatlock.New(nil, outbox, nil, seatlock.Config{})},
	})

	want := map[string]bool{
		"GET /healthz":              true,
		"GET /v1/availability":      true,
		"GET /v1/tables":            true,
		"GET /v1/seats/locks":       true,
		"POST /v1/holds/:id/beacon": true,
		"GET /v1/holds":             true,
		"POST /v1/holds":            true,
		"GET /v1/holds/:id":         true,
		"POST /v1/holds/:id/extend": true,
		"DELETE /v1/holds/:id":      true,
		"POST /v1/seats/:id/lock":   true,
		"DELETE /v1/seats/:id/lock": true,
	}
	for _, r := range e.Routes() {
		delete(want, r.Method+" "+r.Path)
	}
	if len(want) != 0 {
		t.Errorf("routes not registered: %v", want)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/holds", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated create: %d", rec.Code)
	}

	tok, _ := utils.NewAccessToken("router-secret", "alice", "", time.Minute)
	req := httptest.NewRequest(http.MethodPost, "/v1/holds",
		strings.NewReader(`{"date":"2025-06-01","time":"19:00","table_ids":["A"]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("authenticated create: %d %s", rec.Code, rec.Body.String())
	}
}
