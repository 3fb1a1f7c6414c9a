// Package errors provides coded errors for the combat engine.
//
// Callers branch on the Code rather than on message text: invalid input and
// precondition violations are distinct kinds so an orchestrator can decide how
// to report each one.
package errors

import (
	"errors"
	"fmt"
)

// Code categorizes an Error.
type Code string

const (
	// CodeUnknown is used for wrapped errors that carry no code of their own.
	CodeUnknown Code = "unknown"

	// CodeInvalidInput marks malformed or unrecognized caller input such as
	// bad dice notation or an unknown ability name.
	CodeInvalidInput Code = "invalid_input"

	// CodePrecondition marks an operation invoked in a state that forbids it,
	// for example a death save by a conscious character.
	CodePrecondition Code = "failed_precondition"

	// CodeNotFound marks a registry lookup that found nothing.
	CodeNotFound Code = "not_found"

	// CodeInternal marks a broken invariant inside the engine.
	CodeInternal Code = "internal"
)

// Error is an engine error with a code, message, optional cause and metadata.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Meta    map[string]any
}

// Error returns the message, followed by the cause when present.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithMeta attaches a key/value pair and returns e for chaining.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with message, preserving the code of a wrapped *Error.
//
// Postcondition: returns nil iff err is nil.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		return &Error{
			Code:    coded.Code,
			Message: message,
			Cause:   err,
			Meta:    copyMeta(coded.Meta),
		}
	}
	return &Error{Code: CodeUnknown, Message: message, Cause: err}
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps err and forces the resulting code.
func WrapWithCode(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, message)
	wrapped.Code = code
	return wrapped
}

// InvalidInput creates a CodeInvalidInput error.
func InvalidInput(message string) *Error {
	return New(CodeInvalidInput, message)
}

// InvalidInputf creates a formatted CodeInvalidInput error.
func InvalidInputf(format string, args ...any) *Error {
	return Newf(CodeInvalidInput, format, args...)
}

// Precondition creates a CodePrecondition error.
func Precondition(message string) *Error {
	return New(CodePrecondition, message)
}

// Preconditionf creates a formatted CodePrecondition error.
func Preconditionf(format string, args ...any) *Error {
	return Newf(CodePrecondition, format, args...)
}

// NotFound creates a CodeNotFound error.
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// NotFoundf creates a formatted CodeNotFound error.
func NotFoundf(format string, args ...any) *Error {
	return Newf(CodeNotFound, format, args...)
}

// Internalf creates a formatted CodeInternal error.
func Internalf(format string, args ...any) *Error {
	return Newf(CodeInternal, format, args...)
}

// GetCode returns the code of the outermost *Error in err's chain, or
// CodeUnknown when there is none.
func GetCode(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeUnknown
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return GetCode(err) == code
}

// IsInvalidInput reports whether err is an invalid input error.
func IsInvalidInput(err error) bool { return Is(err, CodeInvalidInput) }

// IsPrecondition reports whether err is a precondition violation.
func IsPrecondition(err error) bool { return Is(err, CodePrecondition) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return Is(err, CodeNotFound) }

func copyMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
