package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rolegate/portal-client/internal/core/domain"
)

// RequestLogger writes one line per request.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			res := c.Response()
			ev := log.Info()
			if res.Status >= 500 {
				ev = log.Error()
			} else if res.Status >= 400 {
				ev = log.Warn()
			}
			ev = ev.
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID))
			if u, ok := c.Get(UserKey).(domain.User); ok {
				ev = ev.Str("userid", u.UserID)
			}
			ev.Msg("request")
			return nil
		}
	}
}
