// Package apperr defines the error taxonomy shared by storage backends,
// the service layer and the transports.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by its cause.
type Kind uint8

const (
	KindInternal Kind = iota
	KindNotFound
	KindDuplicateUser
	KindAuthorization
	KindInvalidInput
	KindConstraint
	KindUnavailable
)

var kindNames = map[Kind]string{
	KindInternal:      "INTERNAL",
	KindNotFound:      "NOT_FOUND",
	KindDuplicateUser: "DUPLICATE_USER",
	KindAuthorization: "AUTHORIZATION",
	KindInvalidInput:  "INVALID_INPUT",
	KindConstraint:    "CONSTRAINT",
	KindUnavailable:   "UNAVAILABLE",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("KIND(%d)", uint8(k))
}

// Error is a classified error. Op names the operation that failed, Message is
// safe to show to the caller and Err carries the underlying cause, if any.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind. Sentinels are the
// package-level Err* values, which carry no Op.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrInternal      = &Error{Kind: KindInternal, Message: "internal error"}
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "not found"}
	ErrDuplicateUser = &Error{Kind: KindDuplicateUser, Message: "user already exists"}
	ErrAuthorization = &Error{Kind: KindAuthorization, Message: "not authorised"}
	ErrInvalidInput  = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrConstraint    = &Error{Kind: KindConstraint, Message: "constraint violation"}
	ErrUnavailable   = &Error{Kind: KindUnavailable, Message: "storage unavailable"}
)

// New returns a classified error for op.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause under kind. A nil cause yields nil.
func Wrap(kind Kind, op string, cause error, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

// NotFound is shorthand for New(KindNotFound, ...).
func NotFound(op, format string, args ...any) error {
	return New(KindNotFound, op, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the message a caller may see. Internal causes are
// never exposed.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return ErrInternal.Message
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}
