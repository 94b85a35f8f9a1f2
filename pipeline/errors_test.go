package pipeline

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageFromPayload(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"detail", `{"detail":"Not found."}`, http.StatusNotFound, "Not found."},
		{"error", `{"error":"Token invalido"}`, http.StatusBadRequest, "Token invalido"},
		{"message", `{"message":"try later"}`, http.StatusServiceUnavailable, "try later"},
		{"field errors", `{"username":["A user with that username already exists."]}`, http.StatusBadRequest, "username: A user with that username already exists."},
		{"empty detail falls through", `{"detail":""}`, http.StatusForbidden, "Forbidden"},
		{"not json", `<html>oops</html>`, http.StatusBadGateway, "Bad Gateway"},
		{"empty body", ``, http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, messageFromPayload([]byte(tt.body), tt.status))
		})
	}
}

func TestStatusOf(t *testing.T) {
	err := &ResponseError{Status: http.StatusUnauthorized, Message: "nope"}

	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 0, StatusOf(assert.AnError))
	assert.Contains(t, err.Error(), "401")
}
