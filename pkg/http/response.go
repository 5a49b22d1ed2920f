package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// DataResponse writes the standard envelope with the given status.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

func ListResponse(c echo.Context, rows interface{}, total int64) error {
	return DataResponse(c, http.StatusOK, &ListDataResponse{Rows: rows, Total: total})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// BadRequestResponse writes validation errors returned by ReadAndValidateRequest.
func BadRequestResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

// RawResponse writes body without the envelope, for routes whose JSON shape
// is fixed by existing clients.
func RawResponse(c echo.Context, statusCode int, body interface{}) error {
	return c.JSON(statusCode, body)
}
