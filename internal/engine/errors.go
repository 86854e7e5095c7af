package engine

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no record matches. RuntimeErrors
// with ErrCodeNotFound match it through errors.Is.
var ErrNotFound = errors.New("not found")

// RuntimeError represents an error detected while executing a query.
//
// Runtime errors include:
//   - Unsupported query: the engine cannot evaluate or translate a node
//   - Not iterable: ElemMatch selected something that is not a collection
//   - Field not found: a path names no getter, field or key
//   - Invalid parameter: a parameter reference is out of range
//   - Not found: Get found no record
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Entity is the target entity, when known.
	Entity string

	// Query is the rendering of the query being executed, when known.
	Query string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnsupportedQuery indicates a query node the engine cannot execute.
	ErrCodeUnsupportedQuery RuntimeErrorCode = "UNSUPPORTED_QUERY"

	// ErrCodeNotIterable indicates ElemMatch over a non-collection value.
	ErrCodeNotIterable RuntimeErrorCode = "NOT_ITERABLE"

	// ErrCodeFieldNotFound indicates a path segment that does not resolve.
	ErrCodeFieldNotFound RuntimeErrorCode = "FIELD_NOT_FOUND"

	// ErrCodeInvalidParameter indicates a parameter reference outside the
	// call arguments, or an argument of the wrong kind.
	ErrCodeInvalidParameter RuntimeErrorCode = "INVALID_PARAMETER"

	// ErrCodeNotFound indicates that no record matched.
	ErrCodeNotFound RuntimeErrorCode = "NOT_FOUND"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Entity != "" {
		msg += fmt.Sprintf(" (entity=%s)", e.Entity)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Is makes NOT_FOUND errors match ErrNotFound.
func (e *RuntimeError) Is(target error) bool {
	return target == ErrNotFound && e.Code == ErrCodeNotFound
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsUnsupported returns true if the error is an unsupported query error.
// Uses errors.As to handle wrapped errors.
func IsUnsupported(err error) bool {
	return hasCode(err, ErrCodeUnsupportedQuery)
}

// IsNotIterable returns true if the error is a not-iterable error.
func IsNotIterable(err error) bool {
	return hasCode(err, ErrCodeNotIterable)
}

// IsFieldNotFound returns true if the error is a field-not-found error.
func IsFieldNotFound(err error) bool {
	return hasCode(err, ErrCodeFieldNotFound)
}

// IsInvalidParameter returns true if the error is an invalid parameter error.
func IsInvalidParameter(err error) bool {
	return hasCode(err, ErrCodeInvalidParameter)
}

// NewUnsupportedError creates a RuntimeError for a node the engine cannot
// execute.
func NewUnsupportedError(node fmt.Stringer, reason string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnsupportedQuery,
		Message: reason,
		Query:   render(node),
	}
}

// NewNotIterableError creates a RuntimeError for ElemMatch over value.
func NewNotIterableError(selector fmt.Stringer, value any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNotIterable,
		Message: fmt.Sprintf("%s resolved to %T, which is not a collection", render(selector), value),
		Query:   render(selector),
	}
}

// NewFieldNotFoundError wraps a field lookup failure.
func NewFieldNotFoundError(path string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeFieldNotFound,
		Message: fmt.Sprintf("cannot resolve %q", path),
		Err:     cause,
	}
}

// NewInvalidParameterError creates a RuntimeError for parameter index i of
// a call with count arguments.
func NewInvalidParameterError(i, count int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidParameter,
		Message: fmt.Sprintf("parameter %d referenced, but the call has %d argument(s)", i, count),
	}
}

// NewNotFoundError creates a RuntimeError for a lookup that matched nothing.
func NewNotFoundError(entity string, q fmt.Stringer) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("no record matches %s", render(q)),
		Entity:  entity,
		Query:   render(q),
	}
}

// WithEntity stamps the target entity on a RuntimeError found in err's
// chain and returns err.
func WithEntity(err error, entity string) error {
	var re *RuntimeError
	if errors.As(err, &re) && re.Entity == "" {
		re.Entity = entity
	}
	return err
}

func render(s fmt.Stringer) string {
	if s == nil {
		return "<nil>"
	}
	return s.String()
}
