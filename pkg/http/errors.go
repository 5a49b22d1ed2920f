package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithParam adds a parameter to the error.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError attaches the underlying cause, never shown to clients.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// BadRequestError creates a 400 error.
func BadRequestError(message string) *AppError {
	return NewAppError("ERR_BAD_REQUEST", "", message, http.StatusBadRequest)
}

// UnauthorizedError creates a 401 error.
func UnauthorizedError(message string) *AppError {
	return NewAppError("ERR_UNAUTHORIZED", "", message, http.StatusUnauthorized)
}

// NotFoundError creates a 404 error.
func NotFoundError(message string) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", message, http.StatusNotFound)
}

func ConflictError(message string) *AppError {
	return NewAppError("ERR_CONFLICT", "", message, http.StatusConflict)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError("ERR_RATE_LIMITED", "", message, http.StatusTooManyRequests)
}

// ServiceUnavailableError creates a 503 error.
func ServiceUnavailableError(message string) *AppError {
	return NewAppError("ERR_UNAVAILABLE", "", message, http.StatusServiceUnavailable)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}

func InternalErrorf(format string, a ...interface{}) *AppError {
	return InternalError(fmt.Sprintf(format, a...))
}

// ErrorResponse writes err in the standard envelope. AppErrors keep their
// status; anything else becomes a 500 without leaking the cause.
func ErrorResponse(c echo.Context, err error) error {
	var ae *AppError
	if errors.As(err, &ae) {
		return c.JSON(ae.Status, APIResponse{
			Status:  ae.Status,
			Message: ae.Message,
			Data:    ae,
		})
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return c.JSON(he.Code, APIResponse{
			Status:  he.Code,
			Message: fmt.Sprintf("%v", he.Message),
		})
	}

	return c.JSON(http.StatusInternalServerError, APIResponse{
		Status:  http.StatusInternalServerError,
		Message: http.StatusText(http.StatusInternalServerError),
	})
}

// HTTPErrorHandler plugs ErrorResponse into echo for errors returned by handlers.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	_ = ErrorResponse(c, err)
}
