// Package validation provides common validation utilities for configuration
// parameters across the splitflow library.
//
// The functions return *errors.ValidationError values that wrap
// errors.ErrInvalidConfiguration, so constructors can report every bad field
// in the same format.
package validation
