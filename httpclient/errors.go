package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrBuildRequest marks a request that could not be built, for example a
// multipart file that failed to read. Nothing was sent.
var ErrBuildRequest = errors.New("httpclient: build request")

// Error is returned for every failed request. StatusCode is 0 when no
// response was received.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.local() {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: network error: %v", e.Method, e.Path, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %d: %v", e.Method, e.Path, e.Status, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status, 0 for network failures.
func (e *Error) StatusCode() int { return e.Status }

// Retryable reports whether sending the request again may succeed: network
// failures and 5xx responses.
func (e *Error) Retryable() bool {
	if e.local() {
		return false
	}
	return e.Status == 0 || e.Status >= 500
}

func (e *Error) local() bool {
	return e.Status == 0 && errors.Is(e.Err, ErrBuildRequest)
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var he *Error
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

// Message returns the server-provided message carried by err, if any.
func Message(err error) string {
	var he *Error
	if errors.As(err, &he) {
		return he.Message
	}
	return ""
}

// IsUnauthorized reports a 401 response.
func IsUnauthorized(err error) bool { return StatusCode(err) == http.StatusUnauthorized }

// IsForbidden reports a 403 response.
func IsForbidden(err error) bool { return StatusCode(err) == http.StatusForbidden }

// IsNotFound reports a 404 response.
func IsNotFound(err error) bool { return StatusCode(err) == http.StatusNotFound }

// IsValidation reports a 422 response.
func IsValidation(err error) bool { return StatusCode(err) == http.StatusUnprocessableEntity }

// IsServer reports a 5xx response.
func IsServer(err error) bool { return StatusCode(err) >= 500 }

// IsNetwork reports a request that never received a response.
func IsNetwork(err error) bool {
	var he *Error
	return errors.As(err, &he) && he.Status == 0 && !he.local()
}

// UserMessage picks the text shown to a user for err: the server message
// when there is one, otherwise fallback.
func UserMessage(err error, fallback string) string {
	if msg := Message(err); msg != "" {
		return msg
	}
	return fallback
}
