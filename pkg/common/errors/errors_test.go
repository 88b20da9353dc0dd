package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestCommonErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrInvalidConfiguration", ErrInvalidConfiguration, "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "without hint",
			err: &ValidationError{
				Module: "splitter",
				Field:  "ArenaTasks",
				Value:  -1,
				Reason: "must be positive",
			},
			want: "splitter: invalid ArenaTasks=-1 (must be positive)",
		},
		{
			name: "with hint",
			err: &ValidationError{
				Module: "splitter",
				Field:  "SpinCount",
				Value:  0,
				Reason: "must be positive",
				Hint:   "use a value greater than 0",
			},
			want: "splitter: invalid SpinCount=0 (must be positive) - use a value greater than 0",
		},
		{
			name: "string value",
			err: &ValidationError{
				Module: "reporter",
				Field:  "Schedule",
				Value:  "",
				Reason: "cannot be empty",
			},
			want: "reporter: invalid Schedule= (cannot be empty)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	verr := NewValidationError("test", "field", 0, "test")

	if verr.Unwrap() != ErrInvalidConfiguration {
		t.Errorf("Unwrap() = %v, want ErrInvalidConfiguration", verr.Unwrap())
	}
	if !errors.Is(verr, ErrInvalidConfiguration) {
		t.Error("ValidationError should wrap ErrInvalidConfiguration")
	}
}

func TestValidationError_WithHint(t *testing.T) {
	err := NewValidationError("test", "field", 0, "invalid").
		WithHint("try using a positive value")

	if err.Hint != "try using a positive value" {
		t.Errorf("Hint = %q, want %q", err.Hint, "try using a positive value")
	}

	if result := err.WithHint("new hint"); result != err {
		t.Error("WithHint should return the same instance")
	}
}

func TestOperationError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewOperationError("reporter", "Publish", cause).WithContext("redis sink")

	want := "reporter.Publish failed: connection refused (redis sink)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("OperationError should wrap the cause error")
	}

	bare := NewOperationError("reporter", "Publish", cause)
	if got := bare.Error(); got != "reporter.Publish failed: connection refused" {
		t.Errorf("Error() = %q", got)
	}
}

func TestContractViolation(t *testing.T) {
	defer func() {
		r := recover()
		if !IsContractViolation(r) {
			t.Fatalf("expected contract violation, got %v", r)
		}
		msg := r.(error).Error()
		for _, part := range []string{"Workload.AddSync", "state Running"} {
			if !strings.Contains(msg, part) {
				t.Errorf("message %q should contain %q", msg, part)
			}
		}
	}()

	Violate("Workload.AddSync", "state %s", "Running")
}

func TestIsContractViolation_OtherValues(t *testing.T) {
	tests := []struct {
		name string
		v    interface{}
	}{
		{"nil", nil},
		{"string", "boom"},
		{"plain error", errors.New("boom")},
		{"validation error", NewValidationError("m", "f", 1, "r")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if IsContractViolation(tt.v) {
				t.Errorf("IsContractViolation(%v) = true", tt.v)
			}
		})
	}
}

func TestIsValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"validation error", NewValidationError("test", "field", 0, "test"), true},
		{"wrapped validation error", &OperationError{Cause: NewValidationError("test", "field", 0, "test")}, true},
		{"operation error", &OperationError{Cause: errors.New("test")}, false},
		{"standard error", errors.New("test"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidationError(tt.err); got != tt.want {
				t.Errorf("IsValidationError() = %v, want %v", got, tt.want)
			}
		})
	}
}
