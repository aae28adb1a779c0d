// Package errors provides structured operation errors and helper
// constructors shared across the investigator's packages, so that callers
// produce consistent, greppable error strings instead of ad-hoc fmt.Errorf
// calls.
package errors

import (
	"fmt"
	"strings"
)

// OperationError describes a failed operation with optional component and
// resource context, plus the underlying cause.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

// Error renders the error as "failed to <op>[, component: c][, resource: r][, cause: c]".
func (e *OperationError) Error() string {
	var b strings.Builder
	b.WriteString("failed to ")
	b.WriteString(e.Operation)

	if e.Component != "" {
		b.WriteString(", component: ")
		b.WriteString(e.Component)
	}
	if e.Resource != "" {
		b.WriteString(", resource: ")
		b.WriteString(e.Resource)
	}
	if e.Cause != nil {
		b.WriteString(", cause: ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo builds a simple "failed to <action>[: cause]" error.
func FailedTo(action string, cause error) error {
	if cause == nil {
		return fmt.Errorf("failed to %s", action)
	}
	return fmt.Errorf("failed to %s: %w", action, cause)
}

// FailedToWithDetails builds an *OperationError carrying component and
// resource context in addition to the operation and cause.
func FailedToWithDetails(operation, component, resource string, cause error) error {
	return &OperationError{
		Operation: operation,
		Component: component,
		Resource:  resource,
		Cause:     cause,
	}
}

// Wrapf wraps err with a formatted message, returning nil if err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, err)
}

// DatabaseError builds an OperationError for a failed database operation.
func DatabaseError(operation string, cause error) error {
	return FailedToWithDetails(operation, "database", "", cause)
}

// NetworkError builds an OperationError for a failed network call against
// endpoint.
func NetworkError(operation, endpoint string, cause error) error {
	return FailedToWithDetails(operation, "network", endpoint, cause)
}

// ValidationError reports that field failed validation with msg.
func ValidationError(field, msg string) error {
	return fmt.Errorf("validation failed for field %s: %s", field, msg)
}

// ConfigurationError reports that setting is misconfigured.
func ConfigurationError(setting, msg string) error {
	return fmt.Errorf("configuration error for setting %s: %s", setting, msg)
}

// TimeoutError reports that operation timed out after duration.
func TimeoutError(operation, duration string) error {
	return fmt.Errorf("timeout while %s after %s", operation, duration)
}

// AuthenticationError reports a failed authentication attempt.
func AuthenticationError(msg string) error {
	return fmt.Errorf("authentication failed: %s", msg)
}

// AuthorizationError reports that the caller lacked permission to perform
// action on resource.
func AuthorizationError(action, resource string) error {
	return fmt.Errorf("authorization failed: insufficient permissions to %s %s", action, resource)
}

// ParseError reports that what failed to parse as format.
func ParseError(what, format string, cause error) error {
	return FailedTo(fmt.Sprintf("parse %s as %s", what, format), cause)
}

// retryableSubstrings are substrings of error messages that indicate the
// underlying condition is transient and worth retrying.
var retryableSubstrings = []string{
	"timeout",
	"connection refused",
	"service unavailable",
}

// IsRetryable reports whether err looks like a transient failure based on
// its message text.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, substr := range retryableSubstrings {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// Chain combines multiple errors into one, skipping nils. It returns nil if
// there are no non-nil errors, the error itself if there is exactly one,
// and a "multiple errors: ..." summary otherwise.
func Chain(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}

	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		msgs := make([]string, len(nonNil))
		for i, err := range nonNil {
			msgs[i] = err.Error()
		}
		return fmt.Errorf("multiple errors: %s", strings.Join(msgs, "; "))
	}
}
