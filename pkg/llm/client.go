// Package llm wraps the four LLM-backed operations an investigation
// drives: hypothesis generation, probe-query generation, evidence
// interpretation, and finding synthesis — each a single structured
// completion call with a resilient JSON parse of the response.
package llm

import (
	"context"
	"fmt"

	"github.com/jordigilh/investigator/pkg/domain"
)

// Config carries the connection details for one LLM backend. Mirrors
// internal/config.LLMConfig's fields without importing that package, to
// keep pkg/llm free of a dependency on internal/.
type Config struct {
	Provider    string
	Endpoint    string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	RetryCount  int
}

// maxHypotheses bounds GenerateHypotheses's output regardless of what an
// LLM is asked for, so a misbehaving completion can never blow the
// investigation's per-hypothesis query budget by fanning out too wide.
const maxHypotheses = 5

// TextCompleter is a single free-text completion call, satisfied by both
// AnthropicClient and LangchainClient. The quality judge is built against
// this narrower interface rather than Client so it can run a rubric
// prompt on a different provider/model than the investigation LLM.
type TextCompleter interface {
	CompleteText(ctx context.Context, prompt string) (string, error)
}

// Client is the contract the orchestrator drives an LLM through.
type Client interface {
	GenerateHypotheses(ctx context.Context, alert domain.AnomalyAlert, investigationCtx domain.InvestigationContext) ([]domain.Hypothesis, error)
	GenerateQuery(ctx context.Context, alert domain.AnomalyAlert, investigationCtx domain.InvestigationContext, hypothesis domain.Hypothesis, priorQueries, failedQueries []string, critique string) (string, error)
	InterpretEvidence(ctx context.Context, alert domain.AnomalyAlert, hypothesis domain.Hypothesis, query string, result domain.QueryResult) (domain.Evidence, error)
	SynthesizeFindings(ctx context.Context, investigationID string, alert domain.AnomalyAlert, hypotheses []domain.Hypothesis, evidence []domain.Evidence) (domain.Finding, error)
}

// hypothesesResponse is the JSON shape every provider is prompted to
// return from GenerateHypotheses.
type hypothesesResponse struct {
	Hypotheses []struct {
		Title          string `json:"title"`
		Category       string `json:"category"`
		Reasoning      string `json:"reasoning"`
		SuggestedQuery string `json:"suggested_query"`
	} `json:"hypotheses"`
}

func (r hypothesesResponse) toDomain() []domain.Hypothesis {
	out := make([]domain.Hypothesis, 0, len(r.Hypotheses))
	seenCategories := map[domain.HypothesisCategory]bool{}
	for i, h := range r.Hypotheses {
		if len(out) >= maxHypotheses {
			break
		}
		category := domain.HypothesisCategory(h.Category)
		// Prefer category diversity: once every category has appeared once,
		// admit repeats only if there's still room under maxHypotheses.
		if seenCategories[category] && len(seenCategories) < 5 && len(out) >= len(seenCategories) {
			continue
		}
		seenCategories[category] = true
		out = append(out, domain.Hypothesis{
			ID:             fmt.Sprintf("h%d", i+1),
			Title:          h.Title,
			Category:       category,
			Reasoning:      h.Reasoning,
			SuggestedQuery: h.SuggestedQuery,
		})
	}
	return out
}

type queryResponse struct {
	Query string `json:"query"`
}

type evidenceResponse struct {
	ResultSummary      string   `json:"result_summary"`
	SupportsHypothesis string   `json:"supports_hypothesis"`
	Confidence         float64  `json:"confidence"`
	Interpretation     string   `json:"interpretation"`
	CausalChain        []string `json:"causal_chain"`
	KeyFindings        []string `json:"key_findings"`
}

func (r evidenceResponse) toDomain(hypothesisID, query string, rowCount int) domain.Evidence {
	verdict := domain.SupportUnknown
	switch r.SupportsHypothesis {
	case "true":
		verdict = domain.SupportTrue
	case "false":
		verdict = domain.SupportFalse
	}
	return domain.Evidence{
		HypothesisID:       hypothesisID,
		Query:              query,
		ResultSummary:      r.ResultSummary,
		RowCount:           rowCount,
		SupportsHypothesis: verdict,
		Confidence:         r.Confidence,
		Interpretation:     r.Interpretation,
		CausalChain:        r.CausalChain,
		KeyFindings:        r.KeyFindings,
	}
}

type findingResponse struct {
	Status             string   `json:"status"`
	RootCause          string   `json:"root_cause"`
	Confidence         float64  `json:"confidence"`
	CausalChain        []string `json:"causal_chain"`
	EstimatedOnset     string   `json:"estimated_onset"`
	AffectedScope      string   `json:"affected_scope"`
	SupportingEvidence []string `json:"supporting_evidence"`
	Recommendations    []string `json:"recommendations"`
}

func (r findingResponse) toDomain(investigationID string) domain.Finding {
	status := domain.FindingInconclusive
	switch r.Status {
	case "completed":
		status = domain.FindingCompleted
	case "failed":
		status = domain.FindingFailed
	}
	finding := domain.Finding{
		InvestigationID:    investigationID,
		Status:             status,
		Confidence:         r.Confidence,
		CausalChain:        r.CausalChain,
		AffectedScope:      r.AffectedScope,
		SupportingEvidence: r.SupportingEvidence,
		Recommendations:    r.Recommendations,
	}
	if r.RootCause != "" {
		finding.RootCause = &r.RootCause
	}
	if r.EstimatedOnset != "" {
		finding.EstimatedOnset = &r.EstimatedOnset
	}
	return finding
}
