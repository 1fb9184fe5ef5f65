// Package apperror carries the error kinds shared by the stores, the user
// service and the HTTP adapter.
package apperror

import (
	"errors"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindConflict
	KindUpload
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpload:
		return "upload"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Op and ID are optional context added as the
// error travels up; Message is safe to show to API clients.
type Error struct {
	Kind    Kind
	Op      string
	ID      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		if e.ID != "" {
			b.WriteString(" ")
			b.WriteString(e.ID)
		}
		b.WriteString(": ")
	}
	switch {
	case e.Message != "" && e.Err != nil:
		b.WriteString(e.Message)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error   { return New(KindValidation, msg) }
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Conflict(msg string, err error) *Error {
	return Wrap(KindConflict, msg, err)
}
func Upload(msg string, err error) *Error { return Wrap(KindUpload, msg, err) }
func Store(msg string, err error) *Error  { return Wrap(KindStore, msg, err) }

// WithOp annotates err with the operation and entity id. Classified errors
// keep their kind; anything else becomes KindStore.
func WithOp(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return &Error{Kind: ae.Kind, Op: op, ID: id, Err: err}
	}
	return &Error{Kind: KindStore, Op: op, ID: id, Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	for err != nil {
		var ae *Error
		if !errors.As(err, &ae) {
			break
		}
		if ae.Message != "" {
			return ae.Message
		}
		err = ae.Err
	}
	return "internal error"
}
