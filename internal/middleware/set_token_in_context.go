package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/octabyte/sentimind-session/utils"
)

// SetTokenInContext stores the bearer token of the request, if any, under TokenKey.
func SetTokenInContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(TokenKey, utils.TokenFromHeader(c.Request().Header.Get(Authorization)))
			return next(c)
		}
	}
}

func GetTokenFromContext(c echo.Context) string {
	token, _ := c.Get(TokenKey).(string)
	return token
}
