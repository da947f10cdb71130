// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package apperr defines the error taxonomy shared by every service. Each
// error carries a Kind (used for HTTP status mapping), a stable machine
// code, and a human message. Foreign errors are treated as Unexpected.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for callers and the transport layer.
type Kind int

const (
	KindUnexpected Kind = iota
	KindNotFound
	KindInvalidArgument
	KindConflict
	KindStorageFailure
	KindUnavailable
	KindTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindConflict:
		return "conflict"
	case KindStorageFailure:
		return "storage_failure"
	case KindUnavailable:
		return "unavailable"
	case KindTooLarge:
		return "too_large"
	default:
		return "unexpected"
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its kind.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrStorageFailure  = errors.New("storage failure")
	ErrUnavailable     = errors.New("unavailable")
	ErrTooLarge        = errors.New("too large")
	ErrUnexpected      = errors.New("unexpected error")
)

// Stable codes returned to clients.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeBadRequest      = "BAD_REQUEST"
	CodeConflict        = "CONFLICT"
	CodeStorage         = "STORAGE_ERROR"
	CodeUnexpected      = "UNEXPECTED_ERROR"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
	CodeTooLarge        = "PAYLOAD_TOO_LARGE"
	CodeSelfParent      = "SELF_PARENT"
	CodeCircular        = "CIRCULAR_REFERENCE"
	CodeInvalidPath     = "INVALID_PATH"
	CodeNothingToUpdate = "NOTHING_TO_UPDATE"
)

// UnexpectedMessage is shown to clients instead of internal details.
const UnexpectedMessage = "Unexpected server error"

// Error is the typed error used across services.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match an *Error against its kind sentinel.
func (e *Error) Is(target error) bool {
	return target == sentinel(e.Kind)
}

// StatusCode maps the kind onto an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func sentinel(k Kind) error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindConflict:
		return ErrConflict
	case KindStorageFailure:
		return ErrStorageFailure
	case KindUnavailable:
		return ErrUnavailable
	case KindTooLarge:
		return ErrTooLarge
	default:
		return ErrUnexpected
	}
}

// NotFound reports a missing entity.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: message}
}

// Invalid reports bad caller input.
func Invalid(message string) *Error {
	return &Error{Kind: KindInvalidArgument, Code: CodeBadRequest, Message: message}
}

// InvalidCode is Invalid with a more specific code.
func InvalidCode(code, message string) *Error {
	return &Error{Kind: KindInvalidArgument, Code: code, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Code: CodeConflict, Message: message}
}

// Unavailable reports a dependency that is not configured or reachable.
func Unavailable(message string) *Error {
	return &Error{Kind: KindUnavailable, Code: CodeUnavailable, Message: message}
}

// TooLarge reports a payload above its size limit.
func TooLarge(message string) *Error {
	return &Error{Kind: KindTooLarge, Code: CodeTooLarge, Message: message}
}

// Storage wraps an I/O failure of the content or object store.
func Storage(message string, err error) *Error {
	return &Error{Kind: KindStorageFailure, Code: CodeStorage, Message: message, Err: err}
}

func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Code: CodeUnexpected, Message: UnexpectedMessage, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnexpected when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// As extracts the *Error in err's chain, wrapping foreign errors as
// Unexpected.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Unexpected(err)
}
