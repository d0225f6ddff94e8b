package driftchat

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes SDK errors.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// ErrorTransport means no response was received at all: an HTTP call that
	// never completed, or a dropped socket. Socket transports retry via the
	// reconnect path; one-shot HTTP calls are not retried here.
	ErrorTransport

	// ErrorAuthExpired means the session is no longer valid (401 outside the
	// verification allow-list). Fatal to the session: the store is cleared and
	// any open connection is force-closed.
	ErrorAuthExpired

	// ErrorInvalidInput means a verification probe rejected its input (401 on
	// an allow-listed endpoint, or a request sent without a credential).
	// Recoverable; the session stays intact.
	ErrorInvalidInput

	// ErrorForbidden is a 403. Local and non-fatal, distinct from expiry.
	ErrorForbidden

	// ErrorBadRequest is any other 4xx, carrying the server message when one
	// was supplied.
	ErrorBadRequest

	// ErrorServerFault is a 5xx. Local and non-fatal.
	ErrorServerFault

	// ErrorNotConnected means publish was attempted outside the Open state.
	// The message is never queued; the caller retries explicitly.
	ErrorNotConnected

	// ErrorUnauthenticated means an operation requiring a credential found
	// none present.
	ErrorUnauthenticated

	// ErrorAlreadyConnected means connect was attempted while a connection
	// attempt or session is already in flight.
	ErrorAlreadyConnected

	// ErrorParse is a malformed incoming frame. Dropped and logged, never
	// surfaced past the connection.
	ErrorParse

	ErrorInvalidConfig
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorTransport:
		return "transport_error"
	case ErrorAuthExpired:
		return "auth_expired"
	case ErrorInvalidInput:
		return "invalid_input"
	case ErrorForbidden:
		return "forbidden"
	case ErrorBadRequest:
		return "bad_request"
	case ErrorServerFault:
		return "server_fault"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorUnauthenticated:
		return "unauthenticated"
	case ErrorAlreadyConnected:
		return "already_connected"
	case ErrorParse:
		return "parse_error"
	case ErrorInvalidConfig:
		return "invalid_config"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ChatError is a structured error with code and context.
type ChatError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *ChatError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is comparison by code.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a ChatError with the given code and message.
func NewError(code ErrorCode, message string) *ChatError {
	return &ChatError{Code: code, Message: message}
}

// WrapError wraps an existing error with a ChatError.
func WrapError(code ErrorCode, message string, err error) *ChatError {
	return &ChatError{Code: code, Message: message, Wrapped: err}
}

// CodeOf extracts the ErrorCode from err, or ErrorUnknown.
func CodeOf(err error) ErrorCode {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrorUnknown
}

// IsAuthExpired reports whether err is terminal for the session.
func IsAuthExpired(err error) bool {
	return CodeOf(err) == ErrorAuthExpired
}

// IsTransport reports whether err means no response was received.
func IsTransport(err error) bool {
	return CodeOf(err) == ErrorTransport
}
