package sdk

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrStorageUnavailable means the credential could not be persisted.
	// Callers treat it as "not authenticated".
	ErrStorageUnavailable = errors.New("credential storage unavailable")

	// ErrEmptyCredential is returned when saving a blank credential.
	ErrEmptyCredential = errors.New("credential is empty")

	// ErrUnauthenticated is returned by identity resolution when the server
	// rejected the credential (HTTP 401).
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnreachable is returned by identity resolution for every failure other
	// than a rejected credential: transport errors, unexpected statuses,
	// undecodable bodies.
	ErrUnreachable = errors.New("identity service unreachable")

	// ErrInvalidInput wraps client-side validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api error: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsUnauthorized reports whether err carries an HTTP 401 from the API.
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// IsForbidden reports whether err carries an HTTP 403 from the API.
// A 403 means the credential is valid but lacks privilege; it never clears the session.
func IsForbidden(err error) bool {
	return statusOf(err) == http.StatusForbidden
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
