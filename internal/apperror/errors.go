// Package apperror defines the error kinds surfaced to API callers.
package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error carries a Kind and a message that is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Unauthenticated(message string) *Error { return newError(KindUnauthenticated, message) }
func Forbidden(message string) *Error       { return newError(KindForbidden, message) }
func NotFound(message string) *Error        { return newError(KindNotFound, message) }
func Validation(message string) *Error      { return newError(KindValidation, message) }
func Conflict(message string) *Error        { return newError(KindConflict, message) }

// Wrap attaches cause to a copy of e so that errors.Is still matches e.
func Wrap(e *Error, cause error) error {
	return &wrapped{base: e, cause: cause}
}

type wrapped struct {
	base  *Error
	cause error
}

func (w *wrapped) Error() string {
	return fmt.Sprintf("%s: %v", w.base.Error(), w.cause)
}

func (w *wrapped) Unwrap() []error {
	return []error{w.base, w.cause}
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message, or "" for internal errors.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}
