package safety

import (
	"time"

	"github.com/jordigilh/investigator/pkg/domain"
)

// CircuitBreakerConfig bounds the probe budget of a single investigation.
// Mirrors internal/config.CircuitBreakerConfig; kept independent so
// pkg/safety has no dependency on internal/config.
type CircuitBreakerConfig struct {
	MaxTotalQueries         int
	MaxQueriesPerHypothesis int
	MaxRetries              int
	MaxConsecutiveFailures  int
	MaxDuration             time.Duration
}

// DefaultCircuitBreakerConfig returns the spec's reference defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxTotalQueries:         50,
		MaxQueriesPerHypothesis: 5,
		MaxRetries:              2,
		MaxConsecutiveFailures:  3,
		MaxDuration:             600 * time.Second,
	}
}

// CircuitBreaker inspects an investigation's event log and a candidate
// probe before it is submitted, and trips when any budget is exhausted.
// It holds no state of its own — every check is a pure function of the
// event log handed to it, so budgets evaluated against the combined log
// are automatically atomic regardless of how hypotheses are scheduled.
type CircuitBreaker struct {
	Config CircuitBreakerConfig
}

// NewCircuitBreaker returns a CircuitBreaker enforcing config.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{Config: config}
}

// Check inspects state for hypothesisID (and, when candidateSQL is
// non-empty, checks it for duplication) and returns a
// *CircuitBreakerTripped if any budget is exhausted, or nil if the
// investigation may continue to probe hypothesisID.
func (b *CircuitBreaker) Check(state domain.InvestigationState, hypothesisID, candidateSQL string) error {
	if state.GetQueryCount() >= b.Config.MaxTotalQueries {
		return newTripped("max_total_queries", hypothesisID)
	}

	if state.GetHypothesisQueryCount(hypothesisID) >= b.Config.MaxQueriesPerHypothesis {
		return newTripped("max_queries_per_hypothesis", hypothesisID)
	}

	if state.GetRetryCount(hypothesisID) >= b.Config.MaxRetries {
		return newTripped("max_retries_per_hypothesis", hypothesisID)
	}

	if state.GetConsecutiveFailures(hypothesisID) >= b.Config.MaxConsecutiveFailures {
		return newTripped("max_consecutive_failures", hypothesisID)
	}

	if b.Config.MaxDuration > 0 && state.ElapsedSinceStart() >= b.Config.MaxDuration.Seconds() {
		return newTripped("max_duration", hypothesisID)
	}

	if candidateSQL != "" && state.HasSubmittedQuery(hypothesisID, candidateSQL) {
		return newTripped("duplicate", hypothesisID)
	}

	return nil
}

// IsGlobalBudgetExhausted reports whether the investigation as a whole
// (as opposed to a single hypothesis) has run out of budget — used by
// the orchestrator to decide whether to abandon one hypothesis or
// terminate the entire investigation at the next synthesis boundary.
func (b *CircuitBreaker) IsGlobalBudgetExhausted(state domain.InvestigationState) bool {
	if state.GetQueryCount() >= b.Config.MaxTotalQueries {
		return true
	}
	if b.Config.MaxDuration > 0 && state.ElapsedSinceStart() >= b.Config.MaxDuration.Seconds() {
		return true
	}
	return false
}
