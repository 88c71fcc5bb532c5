package nexus

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the backend rejects a call for the
	// current caller identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidPrincipal is returned for principal text that fails local
	// validation; no call is attempted for such input.
	ErrInvalidPrincipal = errors.New("invalid principal")

	// ErrNotConnected is returned when no gateway is configured for the
	// client.
	ErrNotConnected = errors.New("backend not connected")
)

// CallError is a backend-signaled failure. Message carries the server text
// verbatim so mutation errors can be shown to the user unmodified.
type CallError struct {
	Method     string
	StatusCode int
	Message    string
}

func (e *CallError) Error() string {
	if len(e.Message) > 0 {
		return e.Message
	}
	return fmt.Sprintf("call %q failed with status %d", e.Method, e.StatusCode)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) see through rejections.
func (e *CallError) Unwrap() error {
	if e.StatusCode == 401 || e.StatusCode == 403 {
		return ErrUnauthorized
	}
	return nil
}

// IsUnauthorized reports whether err is a backend authorization rejection.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsRejection reports whether err was signaled by the backend itself, as
// opposed to a transport failure. The cache layer absorbs rejections on
// identity-sensitive queries but lets transport failures surface.
func IsRejection(err error) bool {
	var ce *CallError
	return errors.As(err, &ce)
}
