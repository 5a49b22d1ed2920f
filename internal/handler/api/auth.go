package api

import (
	"errors"
	"net/http"

	"SmartEnergy/internal/domain/models"
	"SmartEnergy/internal/service/auth"
	"SmartEnergy/internal/usecase"
	xhttp "SmartEnergy/pkg/http"
	xlogger "SmartEnergy/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Messages the dashboard shows verbatim.
const (
	MsgEmailExists   = "Email already exists"
	MsgUserNotFound  = "User not found"
	MsgWrongPassword = "Wrong password"
)

type AuthHandler struct {
	logger *xlogger.Logger
	auth   *usecase.AuthUseCase
	tokens *auth.TokenIssuer
}

// NewAuthHandler creates the signup, login and profile routes.
func NewAuthHandler(logger *xlogger.Logger, a *usecase.AuthUseCase, tokens *auth.TokenIssuer) *AuthHandler {
	return &AuthHandler{logger: logger, auth: a, tokens: tokens}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/signup", h.Signup)
	e.POST("/login", h.Login)
	e.GET("/me", h.Me, auth.Required(h.tokens))
}

func message(c echo.Context, status int, msg string) error {
	return xhttp.RawResponse(c, status, models.MessageResponse{Message: msg})
}

func (h *AuthHandler) Signup(c echo.Context) error {
	req := &models.SignupRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	err := h.auth.Signup(c.Request().Context(), req)
	switch {
	case errors.Is(err, usecase.ErrEmailExists):
		return message(c, http.StatusBadRequest, MsgEmailExists)
	case err != nil:
		h.logger.Error("signup error", xlogger.Error(err))
		return xhttp.InternalError("signup failed").WithError(err)
	}
	return message(c, http.StatusOK, usecase.MsgSignupOK)
}

func (h *AuthHandler) Login(c echo.Context) error {
	req := &models.LoginRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	resp, err := h.auth.Login(c.Request().Context(), req)
	switch {
	case errors.Is(err, usecase.ErrUserNotFound):
		return message(c, http.StatusBadRequest, MsgUserNotFound)
	case errors.Is(err, usecase.ErrWrongPassword):
		return message(c, http.StatusBadRequest, MsgWrongPassword)
	case err != nil:
		h.logger.Error("login error", xlogger.Error(err))
		return xhttp.InternalError("login failed").WithError(err)
	}
	return xhttp.RawResponse(c, http.StatusOK, resp)
}

func (h *AuthHandler) Me(c echo.Context) error {
	p, err := h.auth.Me(c.Request().Context(), auth.UserID(c))
	if errors.Is(err, usecase.ErrUserNotFound) {
		return xhttp.NotFoundError(MsgUserNotFound)
	}
	if err != nil {
		h.logger.Error("me error", xlogger.Error(err))
		return xhttp.InternalError("could not load profile").WithError(err)
	}
	return xhttp.RawResponse(c, http.StatusOK, models.MeResponse{User: *p})
}
