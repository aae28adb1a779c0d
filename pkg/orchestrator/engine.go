// Package orchestrator drives one investigation end to end: gather
// context, generate and probe hypotheses under a circuit breaker budget,
// judge each interpretation, reflect on low-scoring ones, and synthesize
// a final finding — all against the append-only event log that is the
// durable source of truth for an investigation's state.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jordigilh/investigator/pkg/contextengine"
	"github.com/jordigilh/investigator/pkg/datasource"
	"github.com/jordigilh/investigator/pkg/domain"
	"github.com/jordigilh/investigator/pkg/judge"
	"github.com/jordigilh/investigator/pkg/lineage"
	"github.com/jordigilh/investigator/pkg/llm"
	"github.com/jordigilh/investigator/pkg/metrics"
	"github.com/jordigilh/investigator/pkg/orchestrator/store"
	"github.com/jordigilh/investigator/pkg/safety"
	"github.com/jordigilh/investigator/pkg/shared/logging"

	"github.com/sirupsen/logrus"
)

// highConfidenceThreshold stops probing a hypothesis early once a single
// piece of accepted evidence reaches this confidence.
const highConfidenceThreshold = 0.85

// maxParallelHypotheses bounds how many hypotheses are investigated
// concurrently within one investigation.
const maxParallelHypotheses = 3

// Engine runs the per-investigation algorithm. It holds no per-run state
// of its own — every run reconstructs its working state from the event
// log via eventLog, so a crash mid-investigation loses no invariant the
// store didn't already persist.
type Engine struct {
	Store          store.Store
	Validator      *safety.Validator
	Breaker        *safety.CircuitBreaker
	InvestigationLLM llm.Client
	Judge          *judge.Judge
	HypothesisLimit int
	ReflexionEnabled bool
	Metrics        *metrics.Metrics // nil disables metrics recording
	Log            *logrus.Logger
}

// NewEngine builds an Engine from its dependencies, defaulting
// HypothesisLimit to 5 when unset. Pass a nil collector to
// WithMetrics, or leave Metrics unset, to run without recording.
func NewEngine(st store.Store, validator *safety.Validator, breaker *safety.CircuitBreaker, investigationLLM llm.Client, qualityJudge *judge.Judge, hypothesisLimit int, reflexionEnabled bool, log *logrus.Logger) *Engine {
	if hypothesisLimit <= 0 {
		hypothesisLimit = 5
	}
	return &Engine{
		Store: st, Validator: validator, Breaker: breaker,
		InvestigationLLM: investigationLLM, Judge: qualityJudge,
		HypothesisLimit: hypothesisLimit, ReflexionEnabled: reflexionEnabled, Log: log,
	}
}

// WithMetrics returns a copy of e recording to collector.
func (e *Engine) WithMetrics(collector *metrics.Metrics) *Engine {
	clone := *e
	clone.Metrics = collector
	return &clone
}

func (e *Engine) recordProbeIssued(tenant string) {
	if e.Metrics != nil {
		e.Metrics.ProbesIssued.WithLabelValues(tenant).Inc()
	}
}

func (e *Engine) recordProbeFailed(tenant, reason string) {
	if e.Metrics != nil {
		e.Metrics.ProbesFailed.WithLabelValues(tenant, reason).Inc()
	}
}

func (e *Engine) recordHypothesisAbandoned(reason string) {
	if e.Metrics != nil {
		e.Metrics.HypothesesAbandoned.WithLabelValues(reason).Inc()
	}
}

func (e *Engine) recordCircuitBreakerTrip(reason string) {
	if e.Metrics != nil {
		e.Metrics.CircuitBreakerTrips.WithLabelValues(reason).Inc()
	}
}

func (e *Engine) recordReflexionAttempt(tenant string) {
	if e.Metrics != nil {
		e.Metrics.ReflexionAttempts.WithLabelValues(tenant).Inc()
	}
}

func (e *Engine) recordJudgeComposite(category string, score float64) {
	if e.Metrics != nil {
		e.Metrics.JudgeCompositeScore.WithLabelValues(category).Observe(score)
	}
}

func (e *Engine) recordProbeLatency(tenant string, ms int64) {
	if e.Metrics != nil {
		e.Metrics.ProbeLatency.WithLabelValues(tenant).Observe(float64(ms) / 1000)
	}
}

func (e *Engine) recordDiscriminationScore(score float64) {
	if e.Metrics != nil {
		e.Metrics.JudgeDiscriminationScore.Observe(score)
	}
}

// eventLog accumulates events for one in-flight investigation and
// appends each one to the durable store as it's emitted, keeping the
// monotonic sequence counter and the persisted log in lockstep.
type eventLog struct {
	ctx    context.Context
	store  store.Store
	id     string
	mu     chan struct{} // 1-buffered mutex: serializes concurrent hypothesis goroutines' appends
	state  domain.InvestigationState
	nextSeq int
	log    *logrus.Logger
}

func newEventLog(ctx context.Context, st store.Store, state domain.InvestigationState, log *logrus.Logger) *eventLog {
	nextSeq := 0
	for _, e := range state.Events {
		if e.Sequence >= nextSeq {
			nextSeq = e.Sequence + 1
		}
	}
	mu := make(chan struct{}, 1)
	mu <- struct{}{}
	return &eventLog{ctx: ctx, store: st, id: state.ID, mu: mu, state: state, nextSeq: nextSeq, log: loggerOrDefault(log)}
}

func (l *eventLog) emit(eventType domain.EventType, data map[string]interface{}) domain.InvestigationState {
	<-l.mu
	defer func() { l.mu <- struct{}{} }()

	event := domain.NewEvent(l.nextSeq, eventType, time.Now(), data)
	l.nextSeq++
	l.state = l.state.AppendEvent(event)
	if err := l.store.AppendEvent(l.ctx, l.id, event); err != nil {
		l.log.WithFields(logging.NewFields().Component("orchestrator").Operation("emit").Error(err).ToLogrus()).
			Warn("failed to persist event; continuing with in-memory state only")
	}
	return l.state
}

func (l *eventLog) snapshot() domain.InvestigationState {
	<-l.mu
	defer func() { l.mu <- struct{}{} }()
	return l.state
}

func loggerOrDefault(log *logrus.Logger) *logrus.Logger {
	if log != nil {
		return log
	}
	return logrus.StandardLogger()
}

// Run executes the full investigation algorithm for state (already
// carrying investigation_started) against adapter, and returns the
// synthesized finding. lineageProvider may be nil if no lineage
// provider is configured for the tenant.
func (e *Engine) Run(ctx context.Context, state domain.InvestigationState, adapter datasource.SQLAdapter, lineageProvider lineage.Provider) (domain.Finding, error) {
	log := loggerOrDefault(e.Log)
	fields := logging.NewFields().Component("orchestrator").Operation("run_investigation")
	elog := newEventLog(ctx, e.Store, state, log)

	if e.Metrics != nil {
		e.Metrics.InvestigationsStarted.WithLabelValues(state.TenantID).Inc()
	}

	ctxEngine := contextengine.NewEngine(adapter, lineageProvider, e.Validator)

	schema, err := adapter.GetSchema(ctx)
	if err != nil {
		elog.emit(domain.EventInvestigationFailed, map[string]interface{}{"reason": "schema_discovery_failed", "error": err.Error()})
		return domain.Finding{}, fmt.Errorf("schema discovery: %w", err)
	}
	if len(schema.AllTables()) == 0 {
		elog.emit(domain.EventInvestigationFailed, map[string]interface{}{"reason": "empty_schema"})
		return domain.Finding{}, fmt.Errorf("schema discovery: no usable tables")
	}

	investigationCtx, err := ctxEngine.Assemble(ctx, state.Alert, schema)
	if err != nil {
		elog.emit(domain.EventInvestigationFailed, map[string]interface{}{"reason": "context_gather_failed", "error": err.Error()})
		return domain.Finding{}, fmt.Errorf("context gather: %w", err)
	}
	elog.emit(domain.EventContextGathered, nil)

	hypotheses, err := e.InvestigationLLM.GenerateHypotheses(ctx, state.Alert, investigationCtx)
	if err != nil {
		elog.emit(domain.EventInvestigationFailed, map[string]interface{}{"reason": "hypothesis_generation_failed", "error": err.Error()})
		return domain.Finding{}, fmt.Errorf("generate_hypotheses: %w", err)
	}
	if len(hypotheses) > e.HypothesisLimit {
		hypotheses = hypotheses[:e.HypothesisLimit]
	}
	for _, h := range hypotheses {
		elog.emit(domain.EventHypothesisGenerated, map[string]interface{}{"hypothesis_id": h.ID, "title": h.Title, "category": string(h.Category)})
		if e.Metrics != nil {
			e.Metrics.HypothesesGenerated.WithLabelValues(string(h.Category)).Inc()
		}
	}

	globalEvidence, composites, err := e.investigateHypotheses(ctx, elog, adapter, state.TenantID, state.Alert, investigationCtx, hypotheses)
	if err != nil {
		return domain.Finding{}, err
	}
	if e.Judge != nil && len(composites) > 0 {
		e.recordDiscriminationScore(judge.AssessSet(composites).DiscriminationScore)
	}

	elog.emit(domain.EventSynthesisStarted, nil)
	finding, err := e.InvestigationLLM.SynthesizeFindings(ctx, elog.id, state.Alert, hypotheses, globalEvidence)
	if err != nil {
		elog.emit(domain.EventInvestigationFailed, map[string]interface{}{"reason": "synthesis_failed", "error": err.Error()})
		return domain.Finding{}, fmt.Errorf("synthesize_findings: %w", err)
	}

	if e.Judge != nil {
		if result, jerr := e.Judge.ValidateSynthesis(ctx, finding, state.Alert.Summary()); jerr == nil {
			e.recordJudgeComposite("synthesis", result.Assessment.CompositeScore)
			if !result.Passed {
				log.WithFields(fields.ToLogrus()).Warn("synthesized finding scored below pass threshold; returning it anyway, as the algorithm has no further reflexion step at synthesis")
			}
		}
	}

	finding.InvestigationID = elog.id
	finding.DurationSeconds = elog.snapshot().ElapsedSinceStart()
	if err := e.Store.SaveFinding(ctx, elog.id, finding); err != nil {
		log.WithFields(fields.Error(err).ToLogrus()).Warn("failed to persist finding")
	}
	elog.emit(domain.EventSynthesisCompleted, map[string]interface{}{"status": string(finding.Status), "root_cause": derefOr(finding.RootCause, "")})

	if e.Metrics != nil {
		e.Metrics.InvestigationsCompleted.WithLabelValues(state.TenantID, string(finding.Status)).Inc()
		e.Metrics.InvestigationDuration.WithLabelValues(state.TenantID).Observe(finding.DurationSeconds)
	}

	return finding, nil
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// investigateHypotheses runs each hypothesis's probe loop, up to
// maxParallelHypotheses concurrently, and returns the union of every
// accepted piece of evidence in hypothesis order, along with every judge
// composite score observed across all hypotheses (for the investigation's
// discrimination score).
func (e *Engine) investigateHypotheses(ctx context.Context, elog *eventLog, adapter datasource.SQLAdapter, tenant string, alert domain.AnomalyAlert, investigationCtx domain.InvestigationContext, hypotheses []domain.Hypothesis) ([]domain.Evidence, []float64, error) {
	evidenceResults := make([][]domain.Evidence, len(hypotheses))
	compositeResults := make([][]float64, len(hypotheses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelHypotheses)

	for i, h := range hypotheses {
		i, h := i, h
		g.Go(func() error {
			evidence, composites := e.investigateOne(gctx, elog, adapter, tenant, alert, investigationCtx, h)
			evidenceResults[i] = evidence
			compositeResults[i] = composites
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var global []domain.Evidence
	var allComposites []float64
	for i := range hypotheses {
		global = append(global, evidenceResults[i]...)
		allComposites = append(allComposites, compositeResults[i]...)
	}
	return global, allComposites, nil
}

// investigateOne runs the hypothesize→probe→interpret→reflect loop for a
// single hypothesis until the circuit breaker trips, a high-confidence
// piece of evidence is accepted, or the reflexion budget for a failing
// interpretation is exhausted.
func (e *Engine) investigateOne(ctx context.Context, elog *eventLog, adapter datasource.SQLAdapter, tenant string, alert domain.AnomalyAlert, investigationCtx domain.InvestigationContext, h domain.Hypothesis) ([]domain.Evidence, []float64) {
	var evidenceForH []domain.Evidence
	var composites []float64
	critique := ""

	for {
		state := elog.snapshot()
		if tripped := e.Breaker.Check(state, h.ID, ""); tripped != nil {
			if e.Breaker.IsGlobalBudgetExhausted(state) {
				elog.emit(domain.EventCircuitBreakerTripped, map[string]interface{}{"hypothesis_id": h.ID, "reason": "global_budget_exhausted"})
				e.recordCircuitBreakerTrip("global_budget_exhausted")
				return evidenceForH, composites
			}
			e.abandonOnTrip(elog, h.ID, tripped)
			return evidenceForH, composites
		}

		priorQueries := state.GetAllQueries(h.ID)
		failedQueries := state.GetFailedQueries(h.ID)

		query, err := e.InvestigationLLM.GenerateQuery(ctx, alert, investigationCtx, h, priorQueries, failedQueries, critique)
		if err != nil {
			elog.emit(domain.EventHypothesisAbandoned, map[string]interface{}{"hypothesis_id": h.ID, "reason": "generate_query_failed"})
			e.recordHypothesisAbandoned("generate_query_failed")
			return evidenceForH, composites
		}

		validated, verr := e.Validator.ValidateQuery(query)
		if verr != nil {
			elog.emit(domain.EventQueryFailed, map[string]interface{}{"hypothesis_id": h.ID, "reason": "invalid_query", "query": query})
			continue
		}

		// The budget check above never carries a candidate query (it runs
		// before one is generated), so duplicate detection happens here,
		// against the now-validated SQL, before it is ever submitted.
		if tripped := e.Breaker.Check(state, h.ID, validated); tripped != nil {
			e.abandonOnTrip(elog, h.ID, tripped)
			return evidenceForH, composites
		}

		state = elog.emit(domain.EventQuerySubmitted, map[string]interface{}{"hypothesis_id": h.ID, "query": validated})
		e.recordProbeIssued(tenant)

		result, execErr := adapter.ExecuteQuery(ctx, validated)
		if execErr != nil {
			reason, retryable := classifyExecErr(execErr)
			elog.emit(domain.EventQueryFailed, map[string]interface{}{"hypothesis_id": h.ID, "reason": reason})
			e.recordProbeFailed(tenant, reason)
			// Retrying here is bounded by the breaker's own
			// max_consecutive_failures check at the top of the next loop
			// iteration, not by GetRetryCount — that counter tracks
			// reflexion attempts (see breakerMaxRetries below), an
			// orthogonal budget. Gating an adapter-transport retry on it
			// would let hypotheses that had already used up their
			// reflexion budget immediately abandon on the next flaky
			// connection instead of retrying it.
			if retryable {
				continue
			}
			elog.emit(domain.EventHypothesisAbandoned, map[string]interface{}{"hypothesis_id": h.ID, "reason": reason})
			e.recordHypothesisAbandoned(reason)
			return evidenceForH, composites
		}
		elog.emit(domain.EventQuerySucceeded, map[string]interface{}{"hypothesis_id": h.ID})
		e.recordProbeLatency(tenant, result.ExecutionTimeMs)

		ev, interpErr := e.InvestigationLLM.InterpretEvidence(ctx, alert, h, validated, result)
		if interpErr != nil {
			elog.emit(domain.EventHypothesisAbandoned, map[string]interface{}{"hypothesis_id": h.ID, "reason": "interpret_evidence_failed"})
			e.recordHypothesisAbandoned("interpret_evidence_failed")
			return evidenceForH, composites
		}

		if e.Judge == nil {
			evidenceForH = append(evidenceForH, ev)
			elog.emit(domain.EventEvidenceRecorded, map[string]interface{}{"hypothesis_id": h.ID, "confidence": ev.Confidence})
			if ev.Confidence >= highConfidenceThreshold {
				return evidenceForH, composites
			}
			continue
		}

		result2, jerr := e.Judge.ValidateInterpretation(ctx, ev, h.Title, validated)
		if jerr != nil {
			evidenceForH = append(evidenceForH, ev)
			elog.emit(domain.EventEvidenceRecorded, map[string]interface{}{"hypothesis_id": h.ID, "confidence": ev.Confidence})
			continue
		}
		e.recordJudgeComposite(string(h.Category), result2.Assessment.CompositeScore)
		composites = append(composites, result2.Assessment.CompositeScore)

		if result2.Passed {
			evidenceForH = append(evidenceForH, ev)
			elog.emit(domain.EventEvidenceRecorded, map[string]interface{}{"hypothesis_id": h.ID, "confidence": ev.Confidence})
			if ev.Confidence >= highConfidenceThreshold {
				return evidenceForH, composites
			}
			critique = ""
			continue
		}

		if e.ReflexionEnabled && state.GetRetryCount(h.ID) < e.breakerMaxRetries() {
			critique = result2.Assessment.ImprovementSuggestion
			elog.emit(domain.EventReflexionAttempted, map[string]interface{}{"hypothesis_id": h.ID, "critique": critique})
			e.recordReflexionAttempt(tenant)
			continue
		}

		return evidenceForH, composites
	}
}

// abandonOnTrip records a per-hypothesis circuit breaker trip: a
// circuit_breaker_tripped event carrying the breaker's bare reason
// (e.g. "duplicate", "max_consecutive_failures"), followed by the
// hypothesis_abandoned event that ends this hypothesis's probe loop.
func (e *Engine) abandonOnTrip(elog *eventLog, hypothesisID string, tripped error) {
	reason := tripped.Error()
	if cbt, ok := tripped.(*safety.CircuitBreakerTripped); ok {
		reason = cbt.Reason
	}
	elog.emit(domain.EventCircuitBreakerTripped, map[string]interface{}{"hypothesis_id": hypothesisID, "reason": reason})
	elog.emit(domain.EventHypothesisAbandoned, map[string]interface{}{"hypothesis_id": hypothesisID, "reason": reason})
	e.recordCircuitBreakerTrip(reason)
	e.recordHypothesisAbandoned(reason)
}

func (e *Engine) breakerMaxRetries() int {
	if e.Breaker == nil {
		return 0
	}
	return e.Breaker.Config.MaxRetries
}

// classifyExecErr maps an adapter execution error to a circuit-breaker
// reason string and whether the orchestrator should retry it within
// budget.
func classifyExecErr(err error) (reason string, retryable bool) {
	if adapterErr, ok := err.(*datasource.AdapterError); ok {
		return string(adapterErr.Code), adapterErr.Retryable()
	}
	return "unknown_error", false
}
