// Package errors provides structured error types for glucifer.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library, CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow the taxonomy of the visualization layer:
//   - INVALID_*: construction and argument validation failures (fatal to the call)
//   - *_NOT_FOUND: missing figures or files
//   - STATE_MALFORMED: a persisted state document could not be parsed
//   - ENGINE_* / VIEWER_FAILED / DATABASE: runtime failures of collaborators,
//     which the orchestration layer logs and swallows
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidArgument, "opacity %v out of range", v)
//	if errors.Is(err, errors.ErrCodeInvalidArgument) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStateMalformed, origErr, "decode figure %q", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Validation errors
	ErrCodeInvalidArgument Code = "INVALID_ARGUMENT"
	ErrCodeInvalidProperty Code = "INVALID_PROPERTY"
	ErrCodeInvalidFilename Code = "INVALID_FILENAME"
	ErrCodeUnknownKind     Code = "UNKNOWN_KIND"

	// Resource not found errors
	ErrCodeFigureNotFound Code = "FIGURE_NOT_FOUND"
	ErrCodeFileNotFound   Code = "FILE_NOT_FOUND"

	// Persisted state errors
	ErrCodeStateMalformed Code = "STATE_MALFORMED"
	ErrCodeDatabase       Code = "DATABASE"

	// Collaborator errors
	ErrCodeEngineUnavailable Code = "ENGINE_UNAVAILABLE"
	ErrCodeEngineFailed      Code = "ENGINE_FAILED"
	ErrCodeViewerFailed      Code = "VIEWER_FAILED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsValidation reports whether err belongs to the validation category, i.e.
// it must be propagated to the caller rather than logged and dropped.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidArgument, ErrCodeInvalidProperty, ErrCodeInvalidFilename, ErrCodeUnknownKind:
		return true
	}
	return false
}
