package api

import (
	"context"
	"net/http"
	"time"

	"SmartEnergy/internal/domain/models"
	"SmartEnergy/internal/usecase"
	xhttp "SmartEnergy/pkg/http"
	xlogger "SmartEnergy/pkg/logger"

	"github.com/labstack/echo/v4"
)

type LeaderboardHandler struct {
	logger *xlogger.Logger
	board  *usecase.LeaderboardUseCase
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(logger *xlogger.Logger, b *usecase.LeaderboardUseCase) *LeaderboardHandler {
	return &LeaderboardHandler{logger: logger, board: b}
}

func (h *LeaderboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/leaderboard", h.Top)
}

func (h *LeaderboardHandler) Top(c echo.Context) error {
	req := &models.LeaderboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.board.Top(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("leaderboard error", xlogger.Error(err))
		return xhttp.InternalError("could not load leaderboard").WithError(err)
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=15")
	return xhttp.RawResponse(c, http.StatusOK, rows)
}

type AlertHandler struct {
	logger *xlogger.Logger
	alerts *usecase.AlertUseCase
	limit  RateLimit
}

// NewAlertHandler creates the demo alert route.
func NewAlertHandler(logger *xlogger.Logger, a *usecase.AlertUseCase, limit RateLimit) *AlertHandler {
	return &AlertHandler{logger: logger, alerts: a, limit: limit}
}

func (h *AlertHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/trigger-alert", h.Trigger, h.limit.middleware())
}

// Trigger answers immediately whether or not the alert could be queued.
func (h *AlertHandler) Trigger(c echo.Context) error {
	if !h.alerts.Trigger(c.Request().Context()) {
		h.logger.Warn("demo alert dropped")
	}
	return message(c, http.StatusOK, usecase.MsgDemoAlertSent)
}

// Checker reports the health of one dependency.
type Checker interface {
	Health(ctx context.Context) error
}

// CheckerFunc adapts a ping function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Health(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	checks map[string]Checker
}

// NewHealthHandler creates a health route over the named checks.
func NewHealthHandler(checks map[string]Checker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	code := http.StatusOK
	for name, chk := range h.checks {
		if chk == nil {
			continue
		}
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(h.checks))
		}
		if err := chk.Health(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	return xhttp.RawResponse(c, code, resp)
}
