// Package metrics exposes the investigator's Prometheus collectors:
// investigation lifecycle counters, probe and circuit-breaker activity,
// and the judge's quality scores, labeled by tenant and (where it makes
// sense) hypothesis category so a dashboard can break down investigation
// health per data source owner.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "investigator"

const (
	labelTenant   = "tenant"
	labelStatus   = "status"
	labelCategory = "category"
	labelReason   = "reason"
)

// Metrics holds every collector the orchestrator and its collaborators
// report against. It is safe for concurrent use — every field is a
// Prometheus collector, which is inherently concurrency-safe.
type Metrics struct {
	InvestigationsStarted   *prometheus.CounterVec
	InvestigationsCompleted *prometheus.CounterVec
	InvestigationDuration   *prometheus.HistogramVec

	ProbesIssued  *prometheus.CounterVec
	ProbesFailed  *prometheus.CounterVec
	ProbeLatency  *prometheus.HistogramVec

	HypothesesGenerated *prometheus.CounterVec
	HypothesesAbandoned *prometheus.CounterVec

	CircuitBreakerTrips *prometheus.CounterVec

	JudgeCompositeScore       *prometheus.HistogramVec
	JudgeDiscriminationScore  prometheus.Histogram
	ReflexionAttempts         *prometheus.CounterVec
}

// New registers and returns every collector against reg. Pass
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer for the process-wide one cmd/investigator
// serves over /metrics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		InvestigationsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "investigations_started_total",
			Help:      "Total number of investigations started, labeled by tenant.",
		}, []string{labelTenant}),
		InvestigationsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "investigations_completed_total",
			Help:      "Total number of investigations reaching a terminal status, labeled by tenant and status.",
		}, []string{labelTenant, labelStatus}),
		InvestigationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "investigation_duration_seconds",
			Help:      "Wall-clock duration of a completed investigation, labeled by tenant.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34min
		}, []string{labelTenant}),

		ProbesIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_issued_total",
			Help:      "Total number of validated queries submitted to a data source adapter, labeled by tenant.",
		}, []string{labelTenant}),
		ProbesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_failed_total",
			Help:      "Total number of probe executions that failed, labeled by tenant and adapter error reason.",
		}, []string{labelTenant, labelReason}),
		ProbeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_latency_seconds",
			Help:      "Adapter-reported execution time of a successful probe, labeled by tenant.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{labelTenant}),

		HypothesesGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hypotheses_generated_total",
			Help:      "Total number of hypotheses generated, labeled by category.",
		}, []string{labelCategory}),
		HypothesesAbandoned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hypotheses_abandoned_total",
			Help:      "Total number of hypotheses abandoned before synthesis, labeled by reason.",
		}, []string{labelReason}),

		CircuitBreakerTrips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of circuit breaker trips, labeled by reason.",
		}, []string{labelReason}),

		JudgeCompositeScore: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "judge_composite_score",
			Help:      "Composite quality score assigned by the judge to an interpretation or synthesis.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11), // 0.0 .. 1.0
		}, []string{labelCategory}),
		JudgeDiscriminationScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "judge_discrimination_score",
			Help:      "Discrimination score of a hypothesis set assessment (variance-derived, capped at 1.0).",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ReflexionAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reflexion_attempts_total",
			Help:      "Total number of reflexion critiques issued after a failing judge score, labeled by tenant.",
		}, []string{labelTenant}),
	}
}
