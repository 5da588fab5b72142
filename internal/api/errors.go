package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized marks a 401 from the remote API. Callers treat it as
	// "session expired" and clear the stored session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformedResponse means the remote answered 2xx but the body did not
	// carry the fields the operation requires (e.g. a login without a token).
	ErrMalformedResponse = errors.New("malformed response")
)

// OperationError is the typed failure for any non-2xx response. It names the
// operation and carries the remote human-readable message when one was
// present.
type OperationError struct {
	Op      string
	Status  int
	Message string
}

func (e *OperationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s failed: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s failed: status %d", e.Op, e.Status)
}

// Unwrap surfaces ErrUnauthorized for 401s so callers can match with
// errors.Is without inspecting status codes.
func (e *OperationError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}
