package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound    ErrorCode = "NOT_FOUND"
	ErrCodeInvalid     ErrorCode = "INVALID"
	ErrCodeConflict    ErrorCode = "CONFLICT"
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE"
	ErrCodeInternal    ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
//
// Structural errors abort processing of a single event only; collaborator
// failures (UNAVAILABLE) abort the run but are safe to retry blind because
// every write is idempotent.
var (
	ErrUnsupportedEventType = NewError(ErrCodeInvalid, "unsupported event type")
	ErrUnparseablePayload   = NewError(ErrCodeInvalid, "unparseable event payload")
	ErrMissingRequiredField = NewError(ErrCodeInvalid, "missing required field")
	ErrRawEventNotFound     = NewError(ErrCodeNotFound, "raw event not found")
	ErrOrderFactNotFound    = NewError(ErrCodeNotFound, "order fact not found")
	ErrReportNotFound       = NewError(ErrCodeNotFound, "quality report not found")
	ErrRunInProgress        = NewError(ErrCodeConflict, "pipeline run already in progress")
	ErrStoreUnavailable     = NewError(ErrCodeUnavailable, "store unavailable")
	ErrInvalidPayload       = NewError(ErrCodeInvalid, "invalid payload")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
