package api

import (
	"errors"
	"fmt"
)

// Error code the backend uses to signal an expired access token on a 403.
// Only this code triggers the single-flight refresh path.
const codeTokenExpired = "ERR.TOK0105"

// ErrSessionExpired is returned once the session cannot be recovered: a 401,
// or a failed token refresh. The stored token pair has been cleared by the
// time callers see it; the only recovery is a fresh sign-in.
var ErrSessionExpired = errors.New("session expired, sign in again")

// Error is a failed API call with the server error body when one was present
type Error struct {
	Status  int    // HTTP status code, 0 for transport failures
	Code    string // server error code, e.g. "ERR.TOK0105"
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api: %s", e.Message)
	}
	if e.Code != "" {
		return fmt.Sprintf("api: %s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("api: %s (%d)", e.Message, e.Status)
}

func (e *Error) Unwrap() error { return e.err }

// IsAuth reports whether err is a session-fatal auth failure
func IsAuth(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// IsValidation reports whether err is a rejected-input failure (HTTP 4xx
// other than the auth statuses)
func IsValidation(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == 400 || apiErr.Status == 422
}
