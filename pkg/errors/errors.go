// Package errors provides structured errors for kodman.
//
// Every failure the run engine can produce carries an ErrorCode so callers can
// classify it without string matching:
//
//	if errors.HasCode(err, errors.ErrCodeNameCollision) {
//		// derived Pod name already in use
//	}
//
// StructuredError implements Unwrap, so the standard library errors.Is and
// errors.As keep working against the wrapped cause.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a StructuredError.
type ErrorCode string

const (
	// ErrCodeCreateFailed means the cluster rejected the Pod at creation.
	ErrCodeCreateFailed ErrorCode = "CREATE_FAILED"
	// ErrCodeImagePull means the container image can not be pulled.
	ErrCodeImagePull ErrorCode = "IMAGE_PULL"
	// ErrCodeEmptyStatus means a Pod read returned no status block.
	ErrCodeEmptyStatus ErrorCode = "EMPTY_STATUS"
	// ErrCodeNameCollision means the derived Pod name is already in use.
	ErrCodeNameCollision ErrorCode = "NAME_COLLISION"
	// ErrCodeTransferFailed means a volume could not be archived or extracted.
	ErrCodeTransferFailed ErrorCode = "TRANSFER_FAILED"
	// ErrCodeExecChannel means the exec channel failed to open or closed abnormally.
	ErrCodeExecChannel ErrorCode = "EXEC_CHANNEL"
	// ErrCodeDeleteFailed means deleting or confirming removal of a Pod failed.
	ErrCodeDeleteFailed ErrorCode = "DELETE_FAILED"

	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeTimeout        ErrorCode = "TIMEOUT"
	ErrCodeUnavailable    ErrorCode = "UNAVAILABLE"
	ErrCodeInternal       ErrorCode = "INTERNAL"
)

// StructuredError is an error with a code, a message, an optional cause and
// optional context fields for logging.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a StructuredError without a cause.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a StructuredError around cause.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithContext creates a StructuredError around cause with extra context fields.
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// CodeOf returns the code of the outermost StructuredError in err's chain,
// or an empty code if there is none.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// HasCode reports whether any StructuredError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var se *StructuredError
		if !stderrors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Cause
	}
	return false
}
