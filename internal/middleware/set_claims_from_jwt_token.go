package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Claims is the payload of the tokens issued by the backend.
type Claims struct {
	jwt.RegisteredClaims
	TokenType  string `json:"token_type"`
	UserID     int64  `json:"user_id"`
	Generation int64  `json:"gen"`
}

var errTokenType = errors.New("wrong token type")

// ParseToken verifies signature, expiry and token type of raw.
func ParseToken(secret []byte, raw, tokenType string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, errTokenType
	}
	return claims, nil
}

// RequireAccessToken rejects requests without a valid access token with the
// 401 body shape clients expect. validate adds backend-specific checks.
// It must run after SetTokenInContext.
func RequireAccessToken(secret []byte, validate func(*Claims) error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := GetTokenFromContext(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"detail": "Authentication credentials were not provided.",
				})
			}

			claims, err := ParseToken(secret, raw, TokenTypeAccess)
			if err == nil && validate != nil {
				err = validate(claims)
			}
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"detail": "Given token not valid for any token type",
					"code":   "token_not_valid",
				})
			}

			c.Set(ClaimsKey, claims)
			return next(c)
		}
	}
}

func GetClaimsFromContext(c echo.Context) *Claims {
	claims, _ := c.Get(ClaimsKey).(*Claims)
	return claims
}
