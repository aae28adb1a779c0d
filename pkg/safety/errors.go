// Package safety implements the read-only SQL validator and the
// per-investigation circuit breaker that together bound what the
// orchestrator is allowed to do against a data source.
package safety

import "fmt"

// ValidationErrorKind is the closed set of reasons a candidate SQL
// statement can be rejected.
type ValidationErrorKind string

const (
	KindEmpty             ValidationErrorKind = "empty"
	KindParseError        ValidationErrorKind = "parse_error"
	KindNotSelect         ValidationErrorKind = "not_select"
	KindMissingLimit      ValidationErrorKind = "missing_limit"
	KindInvalidIdentifier ValidationErrorKind = "invalid_identifier"
)

// QueryValidationError reports why the validator rejected a query.
type QueryValidationError struct {
	Kind    ValidationErrorKind
	Message string
}

func (e *QueryValidationError) Error() string {
	return fmt.Sprintf("query validation failed (%s): %s", e.Kind, e.Message)
}

func newValidationError(kind ValidationErrorKind, format string, args ...interface{}) *QueryValidationError {
	return &QueryValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// CircuitBreakerTripped reports that an investigation or hypothesis has
// exhausted its probe budget.
type CircuitBreakerTripped struct {
	Reason       string
	HypothesisID string
}

func (e *CircuitBreakerTripped) Error() string {
	if e.HypothesisID != "" {
		return fmt.Sprintf("circuit breaker tripped for hypothesis %s: %s", e.HypothesisID, e.Reason)
	}
	return fmt.Sprintf("circuit breaker tripped: %s", e.Reason)
}

func newTripped(reason, hypothesisID string) *CircuitBreakerTripped {
	return &CircuitBreakerTripped{Reason: reason, HypothesisID: hypothesisID}
}
