package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
)

// AdminKeyMiddleware guards reporting routes with a static X-Admin-Key
// header. An unset key keeps the routes locked.
func AdminKeyMiddleware(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			supplied := strings.TrimSpace(c.Request().Header.Get("X-Admin-Key"))
			if key == "" || supplied == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing admin key"})
			}
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(key)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid admin key"})
			}
			return next(c)
		}
	}
}
