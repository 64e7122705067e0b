// Package errors provides structured error types for stepgrid.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the editor, resolver, CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly messages attached to entities as invalid reasons
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes map onto the failure taxonomy of the grid engine:
//   - EXPRESSION_ERROR: a formula failed to parse or evaluate
//   - BINDING_UNAVAILABLE: a referenced variable is absent or has the wrong type
//   - PANEL_REFERENCE: a child references a panel that does not exist
//   - TIMELINE_INTEGRITY: a formula yields a non-integer at some timeline step
//   - INVALID_*, NOT_FOUND, NEEDS_CONFIRMATION: editor and document failures
//
// Only TIMELINE_INTEGRITY and the editor codes are ever returned to callers as
// rejections. The binding codes degrade a single entity during resolution.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeBindingUnavailable, "variable %q unavailable", name)
//	if errors.Is(err, errors.ErrCodeBindingUnavailable) {
//	    // Handle missing binding
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidDocument, origErr, "load %s", path)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Resolution errors (degrade a single entity)
	ErrCodeExpression         Code = "EXPRESSION_ERROR"
	ErrCodeBindingUnavailable Code = "BINDING_UNAVAILABLE"
	ErrCodePanelReference     Code = "PANEL_REFERENCE"

	// Edit rejection
	ErrCodeTimelineIntegrity Code = "TIMELINE_INTEGRITY"
	ErrCodeNeedsConfirmation Code = "NEEDS_CONFIRMATION"

	// Input validation errors
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidDocument  Code = "INVALID_DOCUMENT"
	ErrCodeInvalidDirection Code = "INVALID_DIRECTION"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"

	// Resource not found errors
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeEntityNotFound   Code = "ENTITY_NOT_FOUND"
	ErrCodeDocumentNotFound Code = "DOCUMENT_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message (and cause) without the code prefix.
// Joined errors are rendered one by one, separated by "; ".
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		parts := make([]string, 0, len(joined.Unwrap()))
		for _, e := range joined.Unwrap() {
			parts = append(parts, UserMessage(e))
		}
		return strings.Join(parts, "; ")
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// Reason converts a resolution error into the invalid-reason string attached
// to an entity's projected content. A nil error yields "".
func Reason(err error) string {
	if err == nil {
		return ""
	}
	return UserMessage(err)
}
