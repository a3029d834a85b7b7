package types

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrorCode identifies the kind of a govel error.
type ErrorCode string

// Error codes.
const (
	// S0xxx: syntax errors raised by the parser front end.
	ErrStringNotClosed  ErrorCode = "S0101"
	ErrUnexpectedEnd    ErrorCode = "S0104"
	ErrCommentNotClosed ErrorCode = "S0106"
	ErrSyntaxError      ErrorCode = "S0201"
	ErrExpectedToken    ErrorCode = "S0202"

	// P0xxx: property access errors.
	ErrUnresolvedMember       ErrorCode = "P0101"
	ErrIndexOutOfBounds       ErrorCode = "P0102"
	ErrUnterminatedBracket    ErrorCode = "P0103"
	ErrUnsupportedContainerOp ErrorCode = "P0104"
	ErrNullDereference        ErrorCode = "P0105"
	ErrMissingOverload        ErrorCode = "P0106"

	// T0xxx: type errors.
	ErrConversionFailure   ErrorCode = "T0201"
	ErrCompileTypeMismatch ErrorCode = "T0202"
	ErrInvalidOperation    ErrorCode = "T0203"

	// U0xxx: runtime errors.
	ErrUndefinedVariable ErrorCode = "U1001"
	ErrInvocationFailed  ErrorCode = "U1002"
)

// Error is the single error family surfaced by the engine.
//
// Property and Owner are filled in for property access failures so the caller
// can see which path failed against which host type.
type Error struct {
	Code     ErrorCode
	Message  string
	Property string
	Owner    reflect.Type
	Position int
	Token    string
	Err      error
}

// NewError creates a new error with an unknown position.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: -1,
	}
}

// Errorf creates a new error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Property != "" {
		msg += fmt.Sprintf(" (property: %s", e.Property)
		if e.Owner != nil {
			msg += fmt.Sprintf(", owner: %s", e.Owner)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// WithPosition sets the source offset of the error.
func (e *Error) WithPosition(pos int) *Error {
	e.Position = pos
	return e
}

// Clone returns a shallow copy of e. Annotate the copy when e may be shared,
// such as a package-level error returned by host code.
func (e *Error) Clone() *Error {
	c := *e
	return &c
}

// WithProperty records the property text and owner type the error relates to.
// Values already set are kept so the innermost failure wins.
func (e *Error) WithProperty(property string, owner reflect.Type) *Error {
	if e.Property == "" {
		e.Property = property
	}
	if e.Owner == nil {
		e.Owner = owner
	}
	return e
}

// Code returns a bare error usable as an errors.Is target, e.g.
//
//	errors.Is(err, types.Code(types.ErrIndexOutOfBounds))
func Code(code ErrorCode) *Error {
	return &Error{Code: code}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
