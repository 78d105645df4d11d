package middleware

import "github.com/labstack/echo/v4"

// EchoGuard is Guard for echo. Denials answer with a JSON error body, or hand
// the request to the WithFallback handler. Identity adapters can be mounted
// with echo.WrapMiddleware(SessionUser(m)).
func EchoGuard(check Check, opts ...Option) echo.MiddlewareFunc {
	cfg := newGuardConfig(opts)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			user, allowed := evaluate(check, r)
			if allowed {
				return next(c)
			}

			if cfg.recorder != nil {
				cfg.recorder.RecordAccessDenied(r.Context(), user, r.URL.Path)
			}
			if cfg.fallback != nil {
				cfg.fallback.ServeHTTP(c.Response(), r)
				return nil
			}
			status, msg := denial(user)
			return c.JSON(status, echo.Map{"error": msg})
		}
	}
}
