package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no credential is present; the operation is
	// refused before any network call is made.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrSessionExpired is returned for any 401 response. By the time the
	// caller sees it the persisted credential has already been invalidated.
	ErrSessionExpired = errors.New("session expired")
)

// RequestError is any non-2xx response other than 401. Message carries the
// server-provided detail when present.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed: status=%d message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed: status=%d", e.StatusCode)
}
