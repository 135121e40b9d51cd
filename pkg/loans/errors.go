package loans

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure the calendar builder can return.
var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidType  = errors.New("invalid field type")
	ErrDomain       = errors.New("degenerate loan parameters")
)

// MissingFieldError reports a required input key that is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// InvalidTypeError reports an input value that cannot be coerced to a number.
type InvalidTypeError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *InvalidTypeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("field %q: cannot use %v (%T) as a number: %v", e.Field, e.Value, e.Value, e.Err)
	}
	return fmt.Sprintf("field %q: cannot use %v (%T) as a number", e.Field, e.Value, e.Value)
}

func (e *InvalidTypeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInvalidType) hold while Unwrap keeps the
// underlying conversion error reachable.
func (e *InvalidTypeError) Is(target error) bool {
	return target == ErrInvalidType
}

// DomainError reports mathematically degenerate loan parameters, such as a
// term shorter than one month or an annuity factor that collapses to 1.
type DomainError struct {
	Op     string
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *DomainError) Unwrap() error {
	return ErrDomain
}

// IsClientError reports whether err was caused by the caller's input and can
// only be fixed by correcting it.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingField) || errors.Is(err, ErrInvalidType) || errors.Is(err, ErrDomain)
}

func domainErrorf(op, format string, args ...interface{}) error {
	return &DomainError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
