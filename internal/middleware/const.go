package middleware

const (
	Authorization = "Authorization"
	TokenKey      = "requestToken"
	ClaimsKey     = "jwtClaims"

	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)
