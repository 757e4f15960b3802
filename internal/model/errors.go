package model

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes routing-layer errors.
type ErrorKind string

const (
	// ErrKindVerify indicates malformed input: empty identifier, duplicate
	// state name, conflicting group labels, undeclared target state.
	ErrKindVerify ErrorKind = "VERIFY"

	// ErrKindNotDefined indicates an identifier has no backing definition
	// and its meta type may not exist undefined.
	ErrKindNotDefined ErrorKind = "NOT_DEFINED"

	// ErrKindEnvironment indicates an origin collaborator failed for
	// infrastructural reasons. Never cached.
	ErrKindEnvironment ErrorKind = "ENVIRONMENT"

	// ErrKindSystem indicates an invariant violation inside a collaborator,
	// e.g. a lookup by primary key returned more than one row.
	ErrKindSystem ErrorKind = "SYSTEM"
)

// Error is the error type returned by the routing layer.
//
// Err, when set, is the underlying cause and is reachable via errors.Unwrap.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewVerifyError creates an ErrKindVerify error.
func NewVerifyError(format string, args ...any) *Error {
	return &Error{Kind: ErrKindVerify, Message: fmt.Sprintf(format, args...)}
}

// NewNotDefinedError creates an ErrKindNotDefined error for an identifier.
func NewNotDefinedError(id string) *Error {
	return &Error{Kind: ErrKindNotDefined, Message: fmt.Sprintf("%s is not defined", id)}
}

// NewEnvironmentError wraps an infrastructural failure.
func NewEnvironmentError(message string, err error) *Error {
	return &Error{Kind: ErrKindEnvironment, Message: message, Err: err}
}

// NewSystemError creates an ErrKindSystem error.
func NewSystemError(format string, args ...any) *Error {
	return &Error{Kind: ErrKindSystem, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsVerifyError returns true if err is a verification error.
func IsVerifyError(err error) bool {
	return KindOf(err) == ErrKindVerify
}

// IsNotDefinedError returns true if err is a not-defined error.
func IsNotDefinedError(err error) bool {
	return KindOf(err) == ErrKindNotDefined
}

// IsEnvironmentError returns true if err is an environment error.
func IsEnvironmentError(err error) bool {
	return KindOf(err) == ErrKindEnvironment
}

// IsSystemError returns true if err is a system error.
func IsSystemError(err error) bool {
	return KindOf(err) == ErrKindSystem
}

// IsSkippable reports whether err is terminal for a single item only.
//
// Verification and not-defined failures skip the offending relation or
// sub-meta; environment and system failures abort the whole operation.
func IsSkippable(err error) bool {
	switch KindOf(err) {
	case ErrKindVerify, ErrKindNotDefined:
		return true
	default:
		return false
	}
}
