package safety

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/investigator/pkg/domain"
)

func withEvents(events ...domain.Event) domain.InvestigationState {
	state := domain.NewInvestigationState("inv-1", "tenant-1", domain.AnomalyAlert{})
	for i, e := range events {
		e.Sequence = i
		state = state.AppendEvent(e)
	}
	return state
}

func querySubmitted(hypothesisID, sql string, at time.Time) domain.Event {
	return domain.NewEvent(0, domain.EventQuerySubmitted, at, map[string]interface{}{
		"hypothesis_id": hypothesisID,
		"query":         sql,
	})
}

func queryFailed(hypothesisID string, at time.Time) domain.Event {
	return domain.NewEvent(0, domain.EventQueryFailed, at, map[string]interface{}{"hypothesis_id": hypothesisID})
}

func querySucceeded(hypothesisID string, at time.Time) domain.Event {
	return domain.NewEvent(0, domain.EventQuerySucceeded, at, map[string]interface{}{"hypothesis_id": hypothesisID})
}

func reflexionAttempted(hypothesisID string, at time.Time) domain.Event {
	return domain.NewEvent(0, domain.EventReflexionAttempted, at, map[string]interface{}{"hypothesis_id": hypothesisID})
}

var _ = Describe("CircuitBreaker", func() {
	var (
		breaker *CircuitBreaker
		now     time.Time
	)

	BeforeEach(func() {
		now = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
		breaker = NewCircuitBreaker(CircuitBreakerConfig{
			MaxTotalQueries:         2,
			MaxQueriesPerHypothesis: 2,
			MaxRetries:              1,
			MaxConsecutiveFailures:  2,
			MaxDuration:             10 * time.Minute,
		})
	})

	Context("total query budget", func() {
		It("trips once max_total_queries is reached", func() {
			state := withEvents(
				querySubmitted("h1", "SELECT 1 LIMIT 1", now),
				querySubmitted("h1", "SELECT 2 LIMIT 1", now.Add(time.Second)),
			)
			err := breaker.Check(state, "h1", "SELECT 3 LIMIT 1")
			Expect(err).To(HaveOccurred())
			Expect(err.(*CircuitBreakerTripped).Reason).To(Equal("max_total_queries"))
		})
	})

	Context("duplicate detection", func() {
		It("trips on the second submission of the same SQL", func() {
			state := withEvents(
				querySubmitted("h1", "SELECT COUNT(*) FROM t LIMIT 1", now),
			)
			err := breaker.Check(state, "h1", "select count(*) from t limit 1")
			Expect(err).To(HaveOccurred())
			Expect(err.(*CircuitBreakerTripped).Reason).To(Equal("duplicate"))
		})
	})

	Context("consecutive failure reset", func() {
		It("resets the failure count after a success", func() {
			state := withEvents(
				queryFailed("h1", now),
				queryFailed("h1", now.Add(time.Second)),
				querySucceeded("h1", now.Add(2*time.Second)),
				queryFailed("h1", now.Add(3*time.Second)),
			)
			Expect(state.GetConsecutiveFailures("h1")).To(Equal(1))
		})

		It("trips once the reset-free run reaches the threshold", func() {
			state := withEvents(
				queryFailed("h1", now),
				queryFailed("h1", now.Add(time.Second)),
			)
			err := breaker.Check(state, "h1", "")
			Expect(err).To(HaveOccurred())
			Expect(err.(*CircuitBreakerTripped).Reason).To(Equal("max_consecutive_failures"))
		})
	})

	Context("retry budget", func() {
		It("trips once reflexion attempts for a hypothesis are exhausted", func() {
			state := withEvents(
				reflexionAttempted("h1", now),
			)
			err := breaker.Check(state, "h1", "")
			Expect(err).To(HaveOccurred())
			Expect(err.(*CircuitBreakerTripped).Reason).To(Equal("max_retries_per_hypothesis"))
		})
	})

	Context("shared total budget", func() {
		It("counts every hypothesis's queries against the investigation-wide total", func() {
			state := withEvents(
				querySubmitted("h1", "SELECT 1 LIMIT 1", now),
				querySubmitted("h2", "SELECT 2 LIMIT 1", now.Add(time.Second)),
			)
			err := breaker.Check(state, "h2", "SELECT 3 LIMIT 1")
			Expect(err).To(HaveOccurred())
			Expect(err.(*CircuitBreakerTripped).Reason).To(Equal("max_total_queries"))
		})
	})

	Context("wall clock budget", func() {
		It("trips once max_duration has elapsed", func() {
			started := domain.NewEvent(0, domain.EventInvestigationStarted, now, nil)
			later := domain.NewEvent(0, domain.EventQuerySubmitted, now.Add(11*time.Minute), map[string]interface{}{"hypothesis_id": "h1"})
			state := withEvents(started, later)
			err := breaker.Check(state, "h1", "")
			Expect(err).To(HaveOccurred())
			Expect(err.(*CircuitBreakerTripped).Reason).To(Equal("max_duration"))
		})
	})

	Context("monotonicity", func() {
		It("never un-trips once it has tripped for a reason as more events are appended", func() {
			state := withEvents(
				querySubmitted("h1", "SELECT 1 LIMIT 1", now),
				querySubmitted("h1", "SELECT 2 LIMIT 1", now.Add(time.Second)),
			)
			err := breaker.Check(state, "h1", "")
			Expect(err).To(HaveOccurred())

			state = state.AppendEvent(querySucceeded("h1", now.Add(2*time.Second)))
			err = breaker.Check(state, "h1", "")
			Expect(err).To(HaveOccurred(), "adding a success event must not clear an exhausted query budget")
		})
	})
})
