package apiclient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// APIError is returned for every non-2xx response that reaches the caller.
// Payload is the server body, unmodified.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Payload    []byte
}

func (e *APIError) Error() string {
	if d := e.Detail(); d != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, d)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Detail returns the human readable message carried by the payload, looking at
// the detail, message and error fields in that order. Non-JSON payloads are
// returned as trimmed text.
func (e *APIError) Detail() string {
	if gjson.ValidBytes(e.Payload) {
		for _, key := range []string{"detail", "message", "error"} {
			v := gjson.GetBytes(e.Payload, key)
			if !v.Exists() {
				continue
			}
			if v.Type == gjson.String {
				return v.String()
			}
			return v.Raw
		}
	}
	return strings.TrimSpace(string(e.Payload))
}

// RefreshError reports a failed token refresh. It replaces the 401 that
// triggered the refresh.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string { return "token refresh failed: " + e.Err.Error() }

func (e *RefreshError) Unwrap() error { return e.Err }

// ErrNoTokenInResponse is wrapped by RefreshError when the refresh endpoint
// answers 2xx without a token.
var ErrNoTokenInResponse = errors.New("refresh response carries no token")

// StatusCode returns the HTTP status carried by err, or 0 when err is not an APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
