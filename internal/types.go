// Package internal holds error types and small shared values used across
// mvtfilter's packages.
package internal

import "fmt"

// ErrorCode classifies an Error for callers that branch on failure kind
// (CLI exit code selection, lenient-mode skip-vs-abort decisions).
type ErrorCode string

const (
	ErrorCodeConfig     ErrorCode = "config"
	ErrorCodeValidation ErrorCode = "validation"
	ErrorCodeNotFound   ErrorCode = "not_found"
	ErrorCodeMask       ErrorCode = "mask"
	ErrorCodeDecode     ErrorCode = "decode"
	ErrorCodeWrite      ErrorCode = "write"
	ErrorCodeProcessing ErrorCode = "processing"
	ErrorCodeTimeout    ErrorCode = "timeout"
)

// Error wraps a failure with a stable code and an optional cause, so CLI
// and pipeline code can decide retry/abort/lenient-skip behavior without
// string-matching error messages.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError constructs an Error with the given code, message and cause.
// Cause may be nil.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
