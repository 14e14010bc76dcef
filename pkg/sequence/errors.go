package sequence

import (
	"errors"
	"fmt"
)

// ErrCountUnsupported is returned by Count when the backing sequence
// cannot produce a total without consuming itself. Callers computing
// page metadata degrade the total to zero instead of failing.
var ErrCountUnsupported = errors.New("sequence: count unsupported")

// ErrUnknownField reports a filter or sort referencing a field that the
// property mapper or the field registry does not know.
type ErrUnknownField struct {
	Field string
}

func (e *ErrUnknownField) Error() string {
	return fmt.Sprintf("unknown field: %s", e.Field)
}

// NewErrUnknownField creates an unknown-field error.
func NewErrUnknownField(field string) *ErrUnknownField {
	return &ErrUnknownField{Field: field}
}

// ErrCoercion reports a literal whose representation cannot be converted
// to the target field's representation.
type ErrCoercion struct {
	FromType string
	ToType   string
	Value    interface{}
}

func (e *ErrCoercion) Error() string {
	return fmt.Sprintf("unsupported coercion from %s to %s (value: %v)", e.FromType, e.ToType, e.Value)
}

// NewErrCoercion creates a coercion error.
func NewErrCoercion(fromType, toType string, value interface{}) *ErrCoercion {
	return &ErrCoercion{FromType: fromType, ToType: toType, Value: value}
}

// ErrMalformedFilter reports a raw filter value whose shape does not
// match the documented tree layout.
type ErrMalformedFilter struct {
	Detail string
}

func (e *ErrMalformedFilter) Error() string {
	return fmt.Sprintf("malformed filter: %s", e.Detail)
}

// NewErrMalformedFilter creates a malformed-filter error.
func NewErrMalformedFilter(detail string) *ErrMalformedFilter {
	return &ErrMalformedFilter{Detail: detail}
}

// ErrUnsupportedOperation reports an operation a backend cannot perform.
type ErrUnsupportedOperation struct {
	Backend   string
	Operation string
}

func (e *ErrUnsupportedOperation) Error() string {
	return fmt.Sprintf("operation %s not supported by %s", e.Operation, e.Backend)
}

// NewErrUnsupportedOperation creates an unsupported-operation error.
func NewErrUnsupportedOperation(backend, operation string) *ErrUnsupportedOperation {
	return &ErrUnsupportedOperation{Backend: backend, Operation: operation}
}

// ErrConnectionFailed reports a backend that could not be reached or
// opened.
type ErrConnectionFailed struct {
	Backend string
	Reason  string
}

func (e *ErrConnectionFailed) Error() string {
	return fmt.Sprintf("connection to %s failed: %s", e.Backend, e.Reason)
}

// NewErrConnectionFailed creates a connection error.
func NewErrConnectionFailed(backend, reason string) *ErrConnectionFailed {
	return &ErrConnectionFailed{Backend: backend, Reason: reason}
}
