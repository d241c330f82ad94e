// Package hwerr defines Hardwire's unified error taxonomy and its mapping
// onto HTTP status codes and a stable wire envelope.
package hwerr

import (
	"errors"
	"net/http"
)

// Kind is a closed set of error categories shared by every component.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindAuthMissing          Kind = "auth_missing"
	KindAuthInvalid          Kind = "auth_invalid"
	KindAuthForbidden        Kind = "auth_forbidden"
	KindShareNotFound        Kind = "share_not_found"
	KindFileNotFound         Kind = "file_not_found"
	KindTaskNotFound         Kind = "task_not_found"
	KindShareExpired         Kind = "share_expired"
	KindRangeNotSatisfiable  Kind = "range_not_satisfiable"
	KindRateLimited          Kind = "rate_limited"
	KindFileSizeLimitExceed  Kind = "file_size_limit_exceeded"
	KindTooManyFiles         Kind = "too_many_files"
	KindDatabase             Kind = "database"
	KindFileSystem           Kind = "filesystem"
	KindInternal             Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindValidation:          http.StatusBadRequest,
	KindAuthMissing:         http.StatusUnauthorized,
	KindAuthInvalid:         http.StatusUnauthorized,
	KindAuthForbidden:       http.StatusForbidden,
	KindShareNotFound:       http.StatusNotFound,
	KindFileNotFound:        http.StatusNotFound,
	KindTaskNotFound:        http.StatusNotFound,
	KindShareExpired:        http.StatusGone,
	KindRangeNotSatisfiable: http.StatusRequestedRangeNotSatisfiable,
	KindRateLimited:         http.StatusTooManyRequests,
	KindFileSizeLimitExceed: http.StatusRequestEntityTooLarge,
	KindTooManyFiles:        http.StatusRequestEntityTooLarge,
	KindDatabase:            http.StatusInternalServerError,
	KindFileSystem:          http.StatusInternalServerError,
	KindInternal:            http.StatusInternalServerError,
}

// internalKinds never leak their Details to the client.
var internalKinds = map[Kind]bool{
	KindDatabase:   true,
	KindFileSystem: true,
	KindInternal:   true,
}

// Error is the typed error every layer of Hardwire raises. Details is
// safe to return to an API caller; Cause (if present) is logged only.
type Error struct {
	Kind    Kind
	Details string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Details + ": " + e.Cause.Error()
	}
	return e.Details
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a typed error with a caller-facing Details string.
func New(kind Kind, details string) *Error {
	return &Error{Kind: kind, Details: details}
}

// Wrap attaches an internal cause to a typed error; Details stays
// caller-safe even though Cause is not.
func Wrap(kind Kind, details string, cause error) *Error {
	return &Error{Kind: kind, Details: details, Cause: cause}
}

// Status returns the HTTP status code for an error, falling back to 500
// for anything that isn't a *hwerr.Error.
func Status(err error) int {
	var e *Error
	if errors.As(err, &e) {
		if status, ok := statusByKind[e.Kind]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// Code returns the stable machine code for an error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return string(KindInternal)
}

// PublicDetails returns the details string safe to send to a client,
// redacting internal-kind errors regardless of what Details contains.
func PublicDetails(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if internalKinds[e.Kind] {
			return "an internal error occurred"
		}
		return e.Details
	}
	return "an internal error occurred"
}

// Is reports whether err (or something it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
