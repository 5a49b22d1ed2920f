package api

import (
	"net/http"

	"SmartEnergy/internal/domain/models"
	"SmartEnergy/internal/service/auth"
	"SmartEnergy/internal/usecase"
	xhttp "SmartEnergy/pkg/http"
	xlogger "SmartEnergy/pkg/logger"

	"github.com/labstack/echo/v4"
)

type InsightsHandler struct {
	logger   *xlogger.Logger
	insights *usecase.InsightsUseCase
	tokens   *auth.TokenIssuer
}

// NewInsightsHandler creates the analytics routes.
func NewInsightsHandler(logger *xlogger.Logger, ins *usecase.InsightsUseCase, tokens *auth.TokenIssuer) *InsightsHandler {
	return &InsightsHandler{logger: logger, insights: ins, tokens: tokens}
}

func (h *InsightsHandler) RegisterRoutes(e *echo.Echo) {
	optional := auth.Optional(h.tokens)
	e.GET("/predict", h.Predict, optional)
	e.GET("/ecoscore", h.EcoScore, optional)
	e.GET("/recommendations", h.Recommendations, optional)
	e.GET("/insights", h.Summary, optional)
}

func (h *InsightsHandler) Predict(c echo.Context) error {
	p := h.insights.Predict(c.Request().Context())
	return xhttp.RawResponse(c, http.StatusOK, p.Body())
}

func (h *InsightsHandler) EcoScore(c echo.Context) error {
	s := h.insights.EcoScore(c.Request().Context(), auth.UserID(c))
	return xhttp.RawResponse(c, http.StatusOK, s.Body())
}

func (h *InsightsHandler) Recommendations(c echo.Context) error {
	recs := h.insights.Recommendations(c.Request().Context())
	return xhttp.RawResponse(c, http.StatusOK, models.Recommendations{Recommendations: recs})
}

func (h *InsightsHandler) Summary(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.insights.Summary(c.Request().Context()))
}
