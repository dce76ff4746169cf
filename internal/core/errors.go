package core

import (
	"errors"
	"fmt"
)

// Kind classifies domain failures so transports can map them to a status.
type Kind string

const (
	KindInvalidFormat  Kind = "invalid_format"
	KindInvalidRange   Kind = "invalid_range"
	KindOverlap        Kind = "overlap_violation"
	KindNotFound       Kind = "not_found"
	KindUnauthorized   Kind = "unauthorized"
	KindValidation     Kind = "validation_error"
	KindConflict       Kind = "conflict"
	KindPartialFailure Kind = "partial_failure"
)

// Error is the single error type returned by the domain and service layers.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, so errors.Is(err, ErrNotFound) holds for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Field == "" || t.Field == e.Field)
}

var (
	ErrInvalidFormat  = &Error{Kind: KindInvalidFormat}
	ErrInvalidRange   = &Error{Kind: KindInvalidRange}
	ErrOverlap        = &Error{Kind: KindOverlap}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrUnauthorized   = &Error{Kind: KindUnauthorized}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrPartialFailure = &Error{Kind: KindPartialFailure}
)

// Errorf builds a kind-tagged error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// FieldError builds a kind-tagged error attached to an input field.
func FieldError(kind Kind, field, message string) *Error {
	return &Error{Kind: kind, Field: field, Message: message}
}

// Wrap tags cause with kind. A nil cause yields nil.
func Wrap(kind Kind, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf reports the kind of err, or "" for errors outside the domain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the user-facing message of a domain error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return ""
}
