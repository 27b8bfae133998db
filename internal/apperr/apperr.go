// Package apperr defines the error taxonomy shared by the core and the
// transport layer. Every error returned to a caller carries a stable Kind and
// a human-readable message.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is the stable discriminator exposed on the wire.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindAuth         Kind = "unauthenticated"
	KindNotFound     Kind = "not_found"
	KindPrecondition Kind = "failed_precondition"
	KindExternal     Kind = "external_service"
	KindConflict     Kind = "transaction_conflict"
	KindInternal     Kind = "internal"
)

type Error struct {
	Kind    Kind
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

// Is matches any *Error of the same kind, so errors.Is(err, apperr.NotFound(""))
// style checks work without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error   { return New(KindValidation, msg) }
func Auth(msg string) *Error         { return New(KindAuth, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Precondition(msg string) *Error { return New(KindPrecondition, msg) }

func External(msg string, err error) *Error { return Wrap(KindExternal, msg, err) }
func Internal(msg string, err error) *Error { return Wrap(KindInternal, msg, err) }

// KindOf reports the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message. Unclassified errors never leak
// their text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "an unexpected error occurred"
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind && err != nil
}

// HTTPStatus maps a kind to the response status used by the HTTP transport.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindPrecondition, KindConflict:
		return http.StatusConflict
	case KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
