// Package errors defines the error values shared by splitflow packages.
//
// Two families exist. Recoverable conditions (bad configuration, a sink that
// cannot be reached) are returned as ordinary error values built from the
// sentinels, ValidationError and OperationError. Caller bugs against the
// scheduler API are not errors at all: they panic with a *ContractViolation.
package errors

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is wrapped by every ValidationError.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ValidationError describes a rejected configuration value.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError for the given module and field.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap returns ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError wraps a failure of a named operation in a module.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches extra detail and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// ContractViolation is the panic value raised when a caller breaks an API
// contract: calling an operation in the wrong lifecycle state, re-entering a
// non-recursive lock, or submitting an empty range.
type ContractViolation struct {
	Op     string
	Reason string
}

func (v *ContractViolation) Error() string {
	return fmt.Sprintf("contract violation in %s: %s", v.Op, v.Reason)
}

// Violate panics with a ContractViolation.
func Violate(op, format string, args ...interface{}) {
	panic(&ContractViolation{Op: op, Reason: fmt.Sprintf(format, args...)})
}

// IsContractViolation reports whether a recovered panic value is a ContractViolation.
func IsContractViolation(recovered interface{}) bool {
	err, ok := recovered.(error)
	if !ok {
		return false
	}
	var cv *ContractViolation
	return errors.As(err, &cv)
}

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
