package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestOperationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *OperationError
		expected string
	}{
		{
			name: "full error",
			err: &OperationError{
				Operation: "connect to data source",
				Component: "postgres-adapter",
				Resource:  "tenant-acme",
				Cause:     fmt.Errorf("connection refused"),
			},
			expected: "failed to connect to data source, component: postgres-adapter, resource: tenant-acme, cause: connection refused",
		},
		{
			name: "minimal error",
			err: &OperationError{
				Operation: "load orchestrator config",
				Cause:     fmt.Errorf("invalid yaml"),
			},
			expected: "failed to load orchestrator config, cause: invalid yaml",
		},
		{
			name: "no cause",
			err: &OperationError{
				Operation: "validate candidate query",
				Component: "validator",
			},
			expected: "failed to validate candidate query, component: validator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("OperationError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("schema not found")
	err := &OperationError{
		Operation: "assemble investigation context",
		Cause:     cause,
	}

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("OperationError.Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := &OperationError{Operation: "assemble investigation context"}
	if unwrapped := errNoCause.Unwrap(); unwrapped != nil {
		t.Errorf("OperationError.Unwrap() with no cause = %v, want nil", unwrapped)
	}
}

func TestFailedTo(t *testing.T) {
	tests := []struct {
		name     string
		action   string
		cause    error
		expected string
	}{
		{
			name:     "with cause",
			action:   "submit probe query",
			cause:    fmt.Errorf("query timed out"),
			expected: "failed to submit probe query: query timed out",
		},
		{
			name:     "without cause",
			action:   "start investigation sweep",
			cause:    nil,
			expected: "failed to start investigation sweep",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FailedTo(tt.action, tt.cause)
			if err.Error() != tt.expected {
				t.Errorf("FailedTo() = %q, want %q", err.Error(), tt.expected)
			}
		})
	}
}

func TestFailedToWithDetails(t *testing.T) {
	cause := fmt.Errorf("timeout")
	err := FailedToWithDetails("probe orders table", "datasource", "public.orders", cause)

	opErr, ok := err.(*OperationError)
	if !ok {
		t.Fatalf("FailedToWithDetails() should return *OperationError, got %T", err)
	}

	if opErr.Operation != "probe orders table" {
		t.Errorf("Operation = %q, want %q", opErr.Operation, "probe orders table")
	}
	if opErr.Component != "datasource" {
		t.Errorf("Component = %q, want %q", opErr.Component, "datasource")
	}
	if opErr.Resource != "public.orders" {
		t.Errorf("Resource = %q, want %q", opErr.Resource, "public.orders")
	}
	if opErr.Cause != cause {
		t.Errorf("Cause = %v, want %v", opErr.Cause, cause)
	}
}

func TestWrapf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		format   string
		args     []interface{}
		expected string
	}{
		{
			name:     "wrap with message",
			err:      fmt.Errorf("hypothesis generation failed"),
			format:   "tenant %s",
			args:     []interface{}{"tenant-acme"},
			expected: "tenant tenant-acme: hypothesis generation failed",
		},
		{
			name:     "nil error",
			err:      nil,
			format:   "should not wrap",
			args:     nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Wrapf(tt.err, tt.format, tt.args...)
			if tt.err == nil {
				if result != nil {
					t.Errorf("Wrapf(nil, ...) = %v, want nil", result)
				}
			} else {
				if result.Error() != tt.expected {
					t.Errorf("Wrapf() = %q, want %q", result.Error(), tt.expected)
				}
			}
		})
	}
}

func TestDatabaseError(t *testing.T) {
	cause := fmt.Errorf("connection pool exhausted")
	err := DatabaseError("execute probe query", cause)

	if !strings.Contains(err.Error(), "failed to execute probe query") {
		t.Errorf("DatabaseError should contain operation, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "database") {
		t.Errorf("DatabaseError should contain component, got %q", err.Error())
	}
}

func TestNetworkError(t *testing.T) {
	cause := fmt.Errorf("timeout")
	err := NetworkError("fetch lineage graph", "https://openlineage.internal/api/v1", cause)

	if !strings.Contains(err.Error(), "failed to fetch lineage graph") {
		t.Errorf("NetworkError should contain operation, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "network") {
		t.Errorf("NetworkError should contain component, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "https://openlineage.internal/api/v1") {
		t.Errorf("NetworkError should contain endpoint, got %q", err.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := ValidationError("dataset_id", "must reference a known table")
	expected := "validation failed for field dataset_id: must reference a known table"

	if err.Error() != expected {
		t.Errorf("ValidationError() = %q, want %q", err.Error(), expected)
	}
}

func TestConfigurationError(t *testing.T) {
	err := ConfigurationError("circuit_breaker.max_total_queries", "value must be positive")
	expected := "configuration error for setting circuit_breaker.max_total_queries: value must be positive"

	if err.Error() != expected {
		t.Errorf("ConfigurationError() = %q, want %q", err.Error(), expected)
	}
}

func TestTimeoutError(t *testing.T) {
	err := TimeoutError("waiting for probe result", "30s")
	expected := "timeout while waiting for probe result after 30s"

	if err.Error() != expected {
		t.Errorf("TimeoutError() = %q, want %q", err.Error(), expected)
	}
}

func TestAuthenticationError(t *testing.T) {
	err := AuthenticationError("invalid API key")
	expected := "authentication failed: invalid API key"

	if err.Error() != expected {
		t.Errorf("AuthenticationError() = %q, want %q", err.Error(), expected)
	}
}

func TestAuthorizationError(t *testing.T) {
	err := AuthorizationError("query", "tenant-acme's orders table")
	expected := "authorization failed: insufficient permissions to query tenant-acme's orders table"

	if err.Error() != expected {
		t.Errorf("AuthorizationError() = %q, want %q", err.Error(), expected)
	}
}

func TestParseError(t *testing.T) {
	cause := fmt.Errorf("unexpected token")
	err := ParseError("LLM completion", "JSON hypothesis array", cause)

	if !strings.Contains(err.Error(), "parse LLM completion as JSON hypothesis array") {
		t.Errorf("ParseError should contain parse operation, got %q", err.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "timeout error",
			err:      fmt.Errorf("query timeout after 30s"),
			expected: true,
		},
		{
			name:     "connection refused",
			err:      fmt.Errorf("connection refused by data source"),
			expected: true,
		},
		{
			name:     "service unavailable",
			err:      fmt.Errorf("llm provider service unavailable"),
			expected: true,
		},
		{
			name:     "permanent error",
			err:      fmt.Errorf("syntax error near DROP"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestChain(t *testing.T) {
	tests := []struct {
		name     string
		errors   []error
		expected string
		isNil    bool
	}{
		{
			name:   "no errors",
			errors: []error{nil, nil},
			isNil:  true,
		},
		{
			name:     "single error",
			errors:   []error{fmt.Errorf("hypothesis abandoned"), nil},
			expected: "hypothesis abandoned",
		},
		{
			name:     "multiple errors",
			errors: []error{
				fmt.Errorf("probe h1 failed"),
				fmt.Errorf("probe h2 failed"),
				nil,
				fmt.Errorf("synthesis failed"),
			},
			expected: "multiple errors: probe h1 failed; probe h2 failed; synthesis failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Chain(tt.errors...)
			if tt.isNil {
				if result != nil {
					t.Errorf("Chain() = %v, want nil", result)
				}
			} else {
				if result.Error() != tt.expected {
					t.Errorf("Chain() = %q, want %q", result.Error(), tt.expected)
				}
			}
		})
	}
}
