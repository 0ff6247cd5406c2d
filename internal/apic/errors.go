package apic

import (
	"fmt"
	"strings"
)

// maxErrorBody caps how much of a controller error body is kept in errors
// and per-item details.
const maxErrorBody = 1024

// AuthError is returned when the controller rejects a login or cannot be
// reached for one. A run must not continue past it.
type AuthError struct {
	StatusCode int    // 0 when no response was received
	Body       string // response body, truncated
	Err        error  // transport or decode failure, if any
}

func (e *AuthError) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return fmt.Sprintf("login failed: %v", e.Err)
	}
	return fmt.Sprintf("login failed: %d - %s", e.StatusCode, e.Body)
}

func (e *AuthError) Unwrap() error { return e.Err }

// QueryError is returned when the endpoint listing fails. No deletion may
// proceed after it.
type QueryError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *QueryError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("failed to get endpoints: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("failed to get endpoints: %d: %v", e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("failed to get endpoints: %d - %s", e.StatusCode, e.Body)
	}
}

func (e *QueryError) Unwrap() error { return e.Err }

// statusDetail renders a failed response as "<status> - <body>".
func statusDetail(status int, body []byte) string {
	return fmt.Sprintf("%d - %s", status, snippet(body))
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
