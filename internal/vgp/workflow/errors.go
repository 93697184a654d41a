// Package workflow holds the compliance rules of the VGP engine: completeness
// checks, conclusion derivation, the non-conformity cascade, next-due
// scheduling and the role-gated status lifecycles. Everything here is pure;
// persistence and transactions live in the service layer.
package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Code error category surfaced to callers verbatim
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeForbidden         Code = "FORBIDDEN"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
)

// Error is a categorized engine error.
type Error struct {
	Code    Code
	Message string
	Details []string
}

// Sentinels for errors.Is; they match any *Error of the same code.
var (
	ErrValidation        = &Error{Code: CodeValidation}
	ErrForbidden         = &Error{Code: CodeForbidden}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrConflict          = &Error{Code: CodeConflict}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Details, "; "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newError(CodeValidation, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newError(CodeForbidden, format, args...)
}

func InvalidTransition(format string, args ...interface{}) *Error {
	return newError(CodeInvalidTransition, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(CodeNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newError(CodeConflict, format, args...)
}

// WithDetails attaches per-field details, e.g. the list of unanswered items.
func (e *Error) WithDetails(details ...string) *Error {
	e.Details = append(e.Details, details...)
	return e
}

// CodeOf returns the category of err, or "" for infrastructure errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
