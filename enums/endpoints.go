package enums

// Backend REST paths, relative to the API base URL.
const (
	PathLogin         = "/auth/login/"
	PathRegister      = "/auth/register/"
	PathLogout        = "/auth/logout/"
	PathProfile       = "/auth/me/"
	PathPasswordReset = "/auth/password-reset/"
	PathTokenRefresh  = "/auth/token/refresh/"
	PathPosts         = "/posts/"
	PathCategories    = "/categories/"
)
