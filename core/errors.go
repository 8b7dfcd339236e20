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

// Kind classifies domain errors so that the outer layers can map them to a response.
type Kind uint8

const (
	KindNotFound     Kind = iota + 1
	KindPrecondition      // e.g. inactive session, closed contest
	KindDuplicate         // identity or unique key already taken
	KindMismatch          // references that do not belong together
)

// Error is a typed domain error. Its message is meant for end users.
type Error struct {
	Kind Kind
	Msg  string
}

func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (err *Error) Error() string {
	return err.Msg
}

// ErrorKind returns the Kind of the domain error wrapped in err, or 0.
func ErrorKind(err error) Kind {
	if e, ok := errors.Cause(err).(*Error); ok {
		return e.Kind
	}
	return 0
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
