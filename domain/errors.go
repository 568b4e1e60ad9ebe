package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error carries a code the transport layer maps to a status. Wrapped errors
// stay reachable through errors.Is and errors.As.
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

var (
	ErrUserNotFound     = NewError(ErrCodeNotFound, "user not found")
	ErrTaskNotFound     = NewError(ErrCodeNotFound, "task not found")
	ErrLegNotFound      = NewError(ErrCodeNotFound, "leg not found")
	ErrMissingTaskID    = NewError(ErrCodeInvalid, "missing task id")
	ErrMissingLegID     = NewError(ErrCodeInvalid, "missing leg id")
	ErrInvalidLegStatus = NewError(ErrCodeInvalid, "invalid leg status")
	ErrInvalidOperation = NewError(ErrCodeInvalid, "invalid leg operation")
	ErrVersionConflict  = NewError(ErrCodeConflict, "task was modified concurrently")
	ErrTaskLocked       = NewError(ErrCodeConflict, "task is locked by another transition")
	ErrAuditWrite       = NewError(ErrCodeInternal, "audit write failed")
	ErrUnauthorized     = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload   = NewError(ErrCodeInvalid, "invalid payload")
)

// IsDomainError reports whether err carries the given code.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	return errors.As(err, &dErr) && dErr.Code == code
}

// CodeOf returns the code of the outermost domain error in err's chain, or
// ErrCodeInternal for anything unclassified.
func CodeOf(err error) ErrorCode {
	var dErr *Error
	if errors.As(err, &dErr) && dErr.Code != "" {
		return dErr.Code
	}
	return ErrCodeInternal
}
