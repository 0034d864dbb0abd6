// Package apierror provides standardized error response structures for the API
// and the domain error taxonomy shared by all services.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain error so handlers can map it to an HTTP status
// without inspecting message strings.
type Kind int

const (
	// KindInternal is the fallback for anything not raised by a service.
	KindInternal Kind = iota
	// KindValidation — malformed amount, unbalanced entry, missing field.
	KindValidation
	// KindConflict — session already open/closed, duplicate open attempt.
	KindConflict
	// KindNotFound — unknown register/session/account/entry.
	KindNotFound
	// KindInactive — register (or other resource) deactivated.
	KindInactive
	// KindIntegrity — debit/credit check failed; reportable, never repaired.
	KindIntegrity
)

// Error is the domain error carried from services up to handlers.
type Error struct {
	Kind   Kind
	Msg    string
	Fields map[string]string // field -> failed rule, validation only
	Err    error             // wrapped cause, never shown to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindInactive:
		return http.StatusConflict
	case KindIntegrity:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ─── Constructors ────────────────────────────────────────────────────────────

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Inactivef(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInactive, Msg: fmt.Sprintf(format, args...)}
}

func Integrityf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindIntegrity, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches an internal cause to a domain error.
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// IsKind reports whether err is a domain *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// ─── Response envelopes ──────────────────────────────────────────────────────

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}
