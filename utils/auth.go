package utils

import "strings"

const (
	AuthorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// BearerToken formats an access token as an Authorization header value.
func BearerToken(access string) string {
	return bearerPrefix + access
}

// TokenFromHeader extracts the token from a "Bearer <token>" header value.
// It returns an empty string when the scheme is missing or wrong.
func TokenFromHeader(header string) string {
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}
