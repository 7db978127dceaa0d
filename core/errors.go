package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ErrorKind classifies domain errors so the presentation layer can map them
// to a transport status without knowing each domain's sentinels.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindInvalidArgument
	KindConflict
	KindUnavailable
)

type kindError struct {
	kind ErrorKind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func NewNotFoundError(msg string) error        { return &kindError{KindNotFound, msg} }
func NewInvalidArgumentError(msg string) error { return &kindError{KindInvalidArgument, msg} }
func NewConflictError(msg string) error        { return &kindError{KindConflict, msg} }
func NewUnavailableError(msg string) error     { return &kindError{KindUnavailable, msg} }

// KindOf reports the ErrorKind of err, digging through pkg/errors wrapping.
func KindOf(err error) (ErrorKind, bool) {
	if kerr, ok := errors.Cause(err).(*kindError); ok {
		return kerr.kind, true
	}
	return 0, false
}

func IsNotFound(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindNotFound
}

func IsInvalidArgument(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindInvalidArgument
}

func IsConflict(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindConflict
}

func IsUnavailable(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindUnavailable
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
