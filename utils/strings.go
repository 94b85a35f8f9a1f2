package utils

// Mask keeps the first and last four characters of a token for log output.
func Mask(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "…" + token[len(token)-4:]
}
