package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// BearerAuth guards the API with a static session token. The stream
// endpoint also accepts the token as a query parameter because
// EventSource cannot set request headers.
func BearerAuth(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
			if got == "" {
				got = c.QueryParam("token")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
			}
			return next(c)
		}
	}
}
