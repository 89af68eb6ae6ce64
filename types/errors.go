// Package types holds the data model shared across the FlipSync agent
// coordination fabric: roles, intents, conversation context, workflow
// state, and the uniform error taxonomy every component reports through.
package types

import (
	"errors"
	"fmt"
)

// ErrorCode is the uniform error taxonomy every component reports
// through instead of an ad-hoc error type, so callers can branch on
// Code without knowing which component raised it.
type ErrorCode string

const (
	ErrTimeout           ErrorCode = "TIMEOUT"
	ErrTransport         ErrorCode = "TRANSPORT"
	ErrRateLimit         ErrorCode = "RATE_LIMIT"
	ErrAuth              ErrorCode = "AUTH"
	ErrProtocol          ErrorCode = "PROTOCOL"
	ErrValidation        ErrorCode = "VALIDATION_ERROR"
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrDuplicate         ErrorCode = "DUPLICATE"
	ErrShutdown          ErrorCode = "SHUTDOWN"
	ErrInsufficientInput ErrorCode = "INSUFFICIENT_INPUT"
)

// Error is the structured error value every component returns. Retryable
// tells the caller whether the condition is transient.
type Error struct {
	Code      ErrorCode
	Message   string
	Component string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// CodeOf extracts the ErrorCode from err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
