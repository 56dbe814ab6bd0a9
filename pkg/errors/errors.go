package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes. Policy codes sit in their own block so the admin surface can
// map them to HTTP statuses without string matching.
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrInternal
)

const (
	ErrPolicyViolation ErrorCode = iota + 40000
	ErrStoreRead
	ErrStoreWrite
	ErrConfigLookup
)

// PolicyViolation signals a pre-change event rejected because the elapsed
// time since the last password change is below the configured minimum
// lifetime. It deliberately carries no account data.
func PolicyViolation() *AppError {
	return &AppError{
		Code:    ErrPolicyViolation,
		Message: "password changed within the minimum password lifetime",
	}
}

// StoreReadFailure wraps a failure reading a claim through the attribute
// store collaborator.
func StoreReadFailure(err error) *AppError {
	return &AppError{
		Code:    ErrStoreRead,
		Message: "failed to read last password change timestamp",
		Err:     err,
	}
}

// StoreWriteFailure wraps a failure writing a claim through the attribute
// store collaborator.
func StoreWriteFailure(err error) *AppError {
	return &AppError{
		Code:    ErrStoreWrite,
		Message: "failed to update last password change timestamp",
		Err:     err,
	}
}

func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// IsPolicyViolation reports whether err is a minimum-lifetime rejection.
func IsPolicyViolation(err error) bool {
	return hasCode(err, ErrPolicyViolation)
}

// IsStoreAccess reports whether err is a claim read or write failure.
func IsStoreAccess(err error) bool {
	return hasCode(err, ErrStoreRead) || hasCode(err, ErrStoreWrite)
}

func hasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
