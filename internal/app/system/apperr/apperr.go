// Package apperr defines the error taxonomy shared by stores, services and
// HTTP handlers. Each error carries a Kind that maps to exactly one HTTP
// status in jsonutil.WriteError; kinds are never merged.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for reporting.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindUnauthenticated
	KindValidation
	KindUpstream
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string // set for KindValidation
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds an Error of the given kind.
func E(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// NotFound returns a KindNotFound error.
func NotFound(msg string) error { return E(KindNotFound, msg) }

// Forbidden returns a KindForbidden error.
func Forbidden(msg string) error { return E(KindForbidden, msg) }

// Unauthenticated returns a KindUnauthenticated error.
func Unauthenticated(msg string) error { return E(KindUnauthenticated, msg) }

// Upstream wraps a failure of a backing service (database, storage, mail, CSV source).
func Upstream(msg string, err error) error { return Wrap(KindUpstream, msg, err) }

// Validation returns a KindValidation error carrying per-field messages.
func Validation(fields map[string]string) error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

// KindOf reports the kind of err, or KindUnknown if err is not classified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FieldsOf returns the field map of a validation error, or nil.
func FieldsOf(err error) map[string]string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Fields
	}
	return nil
}

// MessageOf returns the client-safe message of a classified error.
// Unclassified errors yield the fallback.
func MessageOf(err error, fallback string) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return fallback
}
