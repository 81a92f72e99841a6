package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery turns handler panics into a logged 500.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = logPanic(logger, c, r, debug.Stack())
				}
			}()
			return next(c)
		}
	}
}

func logPanic(logger zerolog.Logger, c echo.Context, value any, stack []byte) error {
	rid, _ := c.Get("request_id").(string)
	logger.Error().
		Str("request_id", rid).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Str("panic", fmt.Sprintf("%v", value)).
		Str("stack", string(stack)).
		Msg("panic recovered")

	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
