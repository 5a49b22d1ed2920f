package api

import (
	"errors"
	"net/http"
	"time"

	"SmartEnergy/internal/domain/models"
	domrepo "SmartEnergy/internal/domain/repository"
	"SmartEnergy/internal/services/meter"
	"SmartEnergy/internal/usecase"
	xhttp "SmartEnergy/pkg/http"
	xlogger "SmartEnergy/pkg/logger"
	xutil "SmartEnergy/pkg/util"

	"github.com/labstack/echo/v4"
)

// MeterHandler serves live readings, ingestion and reading history.
type MeterHandler struct {
	logger  *xlogger.Logger
	meter   *usecase.MeterUseCase
	history *usecase.HistoryUseCase
	limit   RateLimit
}

// NewMeterHandler creates the reading routes.
func NewMeterHandler(logger *xlogger.Logger, m *usecase.MeterUseCase, h *usecase.HistoryUseCase, limit RateLimit) *MeterHandler {
	return &MeterHandler{logger: logger, meter: m, history: h, limit: limit}
}

func (h *MeterHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/smartmeter/live", h.Live)
	e.POST("/usage", h.Usage, h.limit.middleware())
	e.GET("/readings/recent", h.Recent)
	e.GET("/readings/history", h.History)
}

func (h *MeterHandler) Live(c echo.Context) error {
	live, err := h.meter.Live(c.Request().Context())
	if err != nil {
		h.logger.Error("live reading error", xlogger.Error(err))
		return xhttp.InternalError("could not sample meter").WithError(err)
	}
	return xhttp.RawResponse(c, http.StatusOK, live)
}

func (h *MeterHandler) Usage(c echo.Context) error {
	req := &models.ReadingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	live, err := h.meter.Ingest(c.Request().Context(), models.SourceUsage, req.Reading())
	if errors.Is(err, meter.ErrInvalidReading) {
		return xhttp.NewAppError("ERR_INVALID_READING", "power", "power must be a finite, non-negative number", http.StatusBadRequest).WithError(err)
	}
	if err != nil {
		h.logger.Error("usage ingest error", xlogger.Error(err))
		return xhttp.InternalError("could not record reading").WithError(err)
	}
	return xhttp.RawResponse(c, http.StatusOK, live)
}

func (h *MeterHandler) Recent(c echo.Context) error {
	req := &models.RecentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.RawResponse(c, http.StatusOK, models.RecentResponse{Readings: h.meter.Recent(req.N)})
}

func (h *MeterHandler) History(c echo.Context) error {
	if !h.history.Enabled() {
		return xhttp.ServiceUnavailableError("reading archive is disabled")
	}
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	q := models.HistoryQuery{
		Meter: req.Meter,
		From:  xutil.ParseTimeDefault(req.From, time.Time{}),
		To:    xutil.ParseTimeDefault(req.To, time.Time{}),
		Limit: req.Limit,
	}
	ctx := c.Request().Context()

	if b := domrepo.NormalizeBucket(req.Bucket); b != domrepo.BucketNone {
		rows, err := h.history.Buckets(ctx, q, b)
		if err != nil {
			h.logger.Error("history buckets error", xlogger.Error(err))
			return xhttp.InternalError("could not load history").WithError(err)
		}
		return xhttp.ListResponse(c, rows, int64(len(rows)))
	}

	rows, err := h.history.Readings(ctx, q)
	if err != nil {
		h.logger.Error("history readings error", xlogger.Error(err))
		return xhttp.InternalError("could not load history").WithError(err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
