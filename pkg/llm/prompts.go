package llm

import (
	"fmt"
	"strings"

	"github.com/jordigilh/investigator/pkg/domain"
)

// schemaSummary renders the tables and columns in schema as a compact
// text block suitable for embedding in a prompt.
func schemaSummary(schema domain.SchemaResponse) string {
	var b strings.Builder
	for _, t := range schema.AllTables() {
		fmt.Fprintf(&b, "- %s(", t.Name)
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = fmt.Sprintf("%s %s", c.Name, c.DataType)
		}
		b.WriteString(strings.Join(cols, ", "))
		b.WriteString(")\n")
	}
	return b.String()
}

func contextSummary(ctx domain.InvestigationContext) string {
	var b strings.Builder
	b.WriteString("Known schema:\n")
	b.WriteString(schemaSummary(ctx.Schema))

	if ctx.Pattern != nil {
		fmt.Fprintf(&b, "\nDetected time-series pattern: %s, severity=%.2f, baseline=%.2f, peak=%.2f, window=%s..%s\n",
			ctx.Pattern.Kind, ctx.Pattern.Severity, ctx.Pattern.Baseline, ctx.Pattern.PeakValue, ctx.Pattern.StartDate, ctx.Pattern.EndDate)
	}
	if len(ctx.Correlations) > 0 {
		b.WriteString("\nCorrelated tables with elevated unmatched-join rates:\n")
		for _, c := range ctx.Correlations {
			fmt.Fprintf(&b, "- %s via %s: %.0f%% unmatched\n", c.Table, c.JoinColumn, c.Strength*100)
		}
	}
	if len(ctx.UpstreamAnomalies) > 0 {
		b.WriteString("\nUpstream null-rate anomalies:\n")
		for _, u := range ctx.UpstreamAnomalies {
			fmt.Fprintf(&b, "- %s.%s: %.0f%% null over %d rows\n", u.Table, u.Column, u.NullRate*100, u.TotalRows)
		}
	}
	if ctx.Lineage != nil {
		fmt.Fprintf(&b, "\nLineage graph: %d dataset(s), %d edge(s)\n", len(ctx.Lineage.Datasets), len(ctx.Lineage.Edges))
	}
	return b.String()
}

func hypothesesPrompt(alert domain.AnomalyAlert, investigationCtx domain.InvestigationContext) string {
	return fmt.Sprintf(`You are a data-quality investigator generating root-cause hypotheses for an anomaly.

Alert: %s

%s

Generate at most %d candidate hypotheses explaining this anomaly. Favor
diversity across these categories: upstream_dependency, transformation_bug,
data_quality, infrastructure, expected_variance. For each, propose one SQL
query that would gather evidence for or against it.

Respond with ONLY a JSON object of this exact shape:
{"hypotheses": [{"title": "...", "category": "...", "reasoning": "...", "suggested_query": "..."}]}`,
		alert.Summary(), contextSummary(investigationCtx), maxHypotheses)
}

func queryPrompt(alert domain.AnomalyAlert, investigationCtx domain.InvestigationContext, hypothesis domain.Hypothesis, priorQueries, failedQueries []string, critique string) string {
	var priorText strings.Builder
	if len(priorQueries) > 0 {
		fmt.Fprintf(&priorText, "Queries already run for this hypothesis:\n- %s\n", strings.Join(priorQueries, "\n- "))
	}
	if len(failedQueries) > 0 {
		fmt.Fprintf(&priorText, "Queries that failed or were rejected:\n- %s\n", strings.Join(failedQueries, "\n- "))
	}
	if critique != "" {
		fmt.Fprintf(&priorText, "Critique of the last interpretation to address: %s\n", critique)
	}

	return fmt.Sprintf(`You are investigating this hypothesis for the alert %q: %q (%s)
Reasoning: %s

%s

%s

Propose the next single SELECT statement to run against the schema above to
gather more evidence for or against this hypothesis. Prefer a query distinct
from what has already been run.

Respond with ONLY a JSON object of this exact shape:
{"query": "..."}`,
		alert.Summary(), hypothesis.Title, hypothesis.Category, hypothesis.Reasoning, contextSummary(investigationCtx), priorText.String())
}

func interpretPrompt(alert domain.AnomalyAlert, hypothesis domain.Hypothesis, query string, result domain.QueryResult) string {
	return fmt.Sprintf(`You are interpreting query evidence for the alert %q and this hypothesis: %q (%s)
Reasoning: %s

Query executed: %s

Result:
%s

Does this evidence support, refute, or leave undetermined the hypothesis?
Respond with ONLY a JSON object of this exact shape:
{"result_summary": "...", "supports_hypothesis": "true"|"false"|"unknown", "confidence": 0.0-1.0, "interpretation": "...", "causal_chain": ["..."], "key_findings": ["..."]}`,
		alert.Summary(), hypothesis.Title, hypothesis.Category, hypothesis.Reasoning, query, result.Summary(20))
}

func synthesisPrompt(alert domain.AnomalyAlert, hypotheses []domain.Hypothesis, evidence []domain.Evidence) string {
	var hypText strings.Builder
	for _, h := range hypotheses {
		fmt.Fprintf(&hypText, "- [%s] %s (%s): %s\n", h.ID, h.Title, h.Category, h.Reasoning)
	}
	var evText strings.Builder
	for _, e := range evidence {
		fmt.Fprintf(&evText, "- hypothesis=%s supports=%s confidence=%.2f: %s\n", e.HypothesisID, e.SupportsHypothesis, e.Confidence, e.Interpretation)
	}

	return fmt.Sprintf(`You are synthesizing the final root-cause finding for this anomaly.

Alert: %s

Hypotheses investigated:
%s

Evidence gathered:
%s

Decide on a final status: "completed" if you have high-confidence evidence
pointing to a root cause, "inconclusive" if evidence was gathered but no
hypothesis is clearly supported, or "failed" if no usable evidence was
gathered at all.

Respond with ONLY a JSON object of this exact shape:
{"status": "completed"|"inconclusive"|"failed", "root_cause": "...", "confidence": 0.0-1.0, "causal_chain": ["..."], "estimated_onset": "...", "affected_scope": "...", "supporting_evidence": ["..."], "recommendations": ["..."]}`,
		alert.Summary(), hypText.String(), evText.String())
}
