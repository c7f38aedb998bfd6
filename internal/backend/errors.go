package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsuccessful is returned when the backend answers 2xx but reports
// success=false in the body.
var ErrUnsuccessful = errors.New("backend reported failure")

// AuthError indicates that the access token was rejected (401/403).
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (status %d): %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// APIError is a non-2xx response other than an auth failure.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf(
		"backend error (status %d) on %s %s: %s",
		e.StatusCode, e.Method, e.Path, e.Message,
	)
}

func newAPIError(status int, method, path string, body []byte) *APIError {
	return &APIError{
		StatusCode: status,
		Method:     method,
		Path:       path,
		Message:    errorMessage(body),
	}
}

// errorMessage extracts a readable message from an error body. The
// backend uses "error"; hosted auth services use "msg" or
// "error_description".
func errorMessage(body []byte) string {
	var payload map[string]interface{}
	if json.Unmarshal(body, &payload) == nil {
		for _, key := range []string{"error", "message", "msg", "error_description"} {
			if m, ok := payload[key].(string); ok && m != "" {
				return m
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return "unknown error"
	}
	return text
}
