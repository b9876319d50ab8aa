package errors

import (
	stderrors "errors"
	"fmt"
)

// Category groups related error codes.
type Category string

const (
	CategoryConfig    Category = "config"
	CategoryTransport Category = "transport"
	CategorySession   Category = "session"
	CategoryCLI       Category = "cli"
)

// HostError is a structured error with an operator-facing explanation.
type HostError struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error group (config, transport, session).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of this occurrence.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *HostError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *HostError) Unwrap() error {
	return e.Wrapped
}

// Is matches another HostError with the same code.
func (e *HostError) Is(target error) bool {
	t, ok := target.(*HostError)
	return ok && t.Code != "" && t.Code == e.Code
}

// WithDetail adds a detailed explanation to the error.
func (e *HostError) WithDetail(d string) *HostError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted explanation to the error.
func (e *HostError) WithDetailf(format string, args ...any) *HostError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *HostError) WithSuggestion(s string) *HostError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *HostError) Wrap(err error) *HostError {
	e.Wrapped = err
	return e
}

// New creates a HostError from a registered error code.
func New(code string) *HostError {
	template, ok := registry[code]
	if !ok {
		return &HostError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &HostError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new HostError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *HostError {
	return &HostError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps err in a HostError with the given code. An err that
// already is (or wraps) a HostError is returned unchanged.
func FromError(err error, code string) *HostError {
	if err == nil {
		return nil
	}
	var he *HostError
	if stderrors.As(err, &he) {
		return he
	}
	return New(code).Wrap(err)
}

// CodeOf returns the code of the first HostError in err's chain, or "".
func CodeOf(err error) string {
	var he *HostError
	if stderrors.As(err, &he) {
		return he.Code
	}
	return ""
}
