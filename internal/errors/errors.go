package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a site error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrValidation         ErrorCode = "VALIDATION"          // 400
	ErrVerificationFailed ErrorCode = "VERIFICATION_FAILED" // 403
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrStorage            ErrorCode = "STORAGE"             // 500
	ErrInternal           ErrorCode = "INTERNAL"            // 500
	ErrServiceUnavailable ErrorCode = "UNAVAILABLE"         // 503
)

// SiteError represents a structured error with code, status, and details.
type SiteError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// cause is the underlying error, kept for logs and never rendered.
	cause error
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *SiteError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for malformed request parameters.
func NewInvalidRequest(msg string) *SiteError {
	return &SiteError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewValidation creates a 400 error listing the required fields that were left blank.
func NewValidation(missing ...string) *SiteError {
	return &SiteError{
		Code:    ErrValidation,
		Status:  400,
		Message: fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")),
		Details: map[string]any{"missing_fields": missing},
	}
}

// NewVerificationFailed creates a 403 error for a rejected captcha token.
func NewVerificationFailed(reason string) *SiteError {
	return &SiteError{
		Code:    ErrVerificationFailed,
		Status:  403,
		Message: "verification failed",
		Details: map[string]any{"reason": reason},
	}
}

// NewNotFound creates a 404 error for an unknown submission id.
func NewNotFound(id string) *SiteError {
	return &SiteError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("submission not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewStorage creates a 500 error for a store file that could not be read or written.
// The message names the operation only; the cause stays out of user-facing output.
func NewStorage(op string, err error) *SiteError {
	return &SiteError{
		Code:    ErrStorage,
		Status:  500,
		Message: fmt.Sprintf("storage unavailable during %s", op),
		Details: map[string]any{"op": op},
		cause:   err,
	}
}

// NewServiceUnavailable creates a 503 error for a feature that is not configured.
func NewServiceUnavailable(msg string) *SiteError {
	return &SiteError{
		Code:    ErrServiceUnavailable,
		Status:  503,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *SiteError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SiteError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is a SiteError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *SiteError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// As extracts a SiteError from err, wrapping unknown errors as internal.
func As(err error) *SiteError {
	var sErr *SiteError
	if stderrors.As(err, &sErr) {
		return sErr
	}
	return NewInternal(err)
}

// Public reports whether the error's message and details are safe to show to users.
func (e *SiteError) Public() bool {
	return e.Code != ErrInternal && e.Code != ErrStorage
}
