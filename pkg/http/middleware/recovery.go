package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applogger "SmartEnergy/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns handler panics into a 500 and logs the stack.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				perr, ok := r.(error)
				if !ok {
					perr = fmt.Errorf("%v", r)
				}
				l.Error("panic recovered",
					applogger.Error(perr),
					applogger.String("path", c.Path()),
					applogger.String("stack", string(debug.Stack())),
				)
				err = c.JSON(http.StatusInternalServerError, map[string]interface{}{
					"status":  http.StatusInternalServerError,
					"message": http.StatusText(http.StatusInternalServerError),
				})
			}()
			return next(c)
		}
	}
}
