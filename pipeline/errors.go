package pipeline

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// ErrRenewalFailed marks an access-token renewal that could not complete.
// The stored credentials are gone once a caller sees it.
var ErrRenewalFailed = errors.New("credential renewal failed")

// ResponseError is a non-2xx backend response surfaced to the caller.
type ResponseError struct {
	Status  int
	Message string
	Payload []byte
	cause   error
}

func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
	if e.cause != nil {
		msg += " (" + e.cause.Error() + ")"
	}
	return msg
}

func (e *ResponseError) Unwrap() error {
	return e.cause
}

// NewResponseError builds a ResponseError from resp. cause, when set, is what
// prevented the pipeline from recovering, e.g. a failed renewal.
func NewResponseError(resp *resty.Response, cause error) *ResponseError {
	body := resp.Body()
	return &ResponseError{
		Status:  resp.StatusCode(),
		Message: messageFromPayload(body, resp.StatusCode()),
		Payload: body,
		cause:   cause,
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.Status
	}
	return 0
}

func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// messageFromPayload picks a human readable message out of the usual REST
// error shapes: {"detail"}, {"error"}, {"message"} or {"field": ["msg"]}.
func messageFromPayload(body []byte, status int) string {
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		for _, key := range []string{"detail", "error", "message"} {
			if v := parsed.Get(key); v.Exists() && v.String() != "" {
				return v.String()
			}
		}

		var fieldMsg string
		parsed.ForEach(func(key, value gjson.Result) bool {
			if value.IsArray() && len(value.Array()) > 0 {
				fieldMsg = key.String() + ": " + value.Array()[0].String()
				return false
			}
			return true
		})
		if fieldMsg != "" {
			return fieldMsg
		}
	}
	return http.StatusText(status)
}
