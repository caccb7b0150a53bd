package vulnenrich

import (
	"errors"
	"strings"
)

// Error is the vulnenrich error domain type.
//
// Errors coming from vulnenrich components should be able to be inspected as
// (errors.As) an *Error at some point in the error chain.
//
// Implementers of components should create an Error at the system boundary
// (e.g. when using a database client or making an HTTP request) and
// intermediate layers should not wrap in another Error except to add
// additional ErrorKind information. That is to say, use fmt.Errorf with a
// "%w" verb in preference to creating a containing Error.
type Error struct {
	Inner   error
	Kind    ErrorKind
	Message string
	Op      string
}

var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("[")
	switch e.Kind {
	case ErrTimeout,
		ErrRateLimited,
		ErrUnreachable,
		ErrBadResponse,
		ErrInvalid,
		ErrInternal:
		b.WriteString(string(e.Kind))
	default:
		b.WriteString("???")
	}
	b.WriteString("]: ")
	if e.Message != "" {
		b.WriteString(e.Message)
	}
	if e.Message != "" && e.Inner != nil {
		b.WriteString(": ")
	}
	if e.Op == "" && e.Message == "" {
		b.Reset()
	}
	if e.Inner != nil {
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

// Is enables errors.Is.
//
// It compares the error kind. Callers should compare against a declared
// ErrorKind over a specific error.
func (e *Error) Is(kind error) bool {
	switch kind {
	case ErrTransient:
		return errors.Is(e.Kind, ErrTimeout) ||
			errors.Is(e.Kind, ErrRateLimited) ||
			errors.Is(e.Kind, ErrUnreachable)
	default:
	}
	return errors.Is(e.Kind, kind)
}

// Unwrap enables errors.Unwrap.
func (e *Error) Unwrap() error {
	return e.Inner
}

// ErrorKind represents classes of errors to be checked against.
//
// If an error is unsure which kind to use, ErrInternal should be used.
type ErrorKind string

// Defined error kinds.
var (
	ErrTimeout     = ErrorKind("timeout")     // upstream deadline exceeded
	ErrRateLimited = ErrorKind("ratelimited") // upstream asked us to back off
	ErrUnreachable = ErrorKind("unreachable") // connection could not be made
	ErrBadResponse = ErrorKind("badresponse") // upstream answered with garbage
	ErrInvalid     = ErrorKind("invalid")     // invalid input
	ErrInternal    = ErrorKind("internal")    // non-specific internal error

	// ErrTransient should only be used for an Is comparison. It's true for
	// any error kind that may succeed on retry.
	ErrTransient = ErrorKind("transient")
)

// Error implements error.
func (e ErrorKind) Error() string {
	return string(e)
}
