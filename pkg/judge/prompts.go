package judge

import (
	"fmt"

	"github.com/jordigilh/investigator/pkg/domain"
)

const rubricInstructions = `Score the analysis below on three dimensions, each in [0.0, 1.0]:
- causal_depth: does it trace an actual causal mechanism, not just restate the symptom?
- specificity: does it name concrete tables, columns, time windows, or values, rather than speaking in generalities?
- actionability: could someone act on this without further investigation?

If any dimension scores low, include a specific improvement_suggestion (at
least 20 characters) naming what evidence or detail would raise it.

Respond with ONLY a JSON object of this exact shape:
{"causal_depth": 0.0-1.0, "specificity": 0.0-1.0, "actionability": 0.0-1.0, "improvement_suggestion": "..."}`

func interpretationRubricPrompt(evidence domain.Evidence, hypothesisTitle, query string) string {
	return fmt.Sprintf(`You are a quality judge reviewing one piece of evidence interpretation produced during a root-cause investigation.

Hypothesis under test: %s
Query executed: %s
Supports hypothesis: %s
Confidence claimed: %.2f
Interpretation: %s
Causal chain claimed: %v
Key findings: %v

%s`,
		hypothesisTitle, query, evidence.SupportsHypothesis, evidence.Confidence, evidence.Interpretation, evidence.CausalChain, evidence.KeyFindings, rubricInstructions)
}

func synthesisRubricPrompt(finding domain.Finding, alertSummary string) string {
	rootCause := "(none)"
	if finding.RootCause != nil {
		rootCause = *finding.RootCause
	}
	return fmt.Sprintf(`You are a quality judge reviewing a final synthesized root-cause finding for this alert: %s

Status: %s
Root cause: %s
Confidence: %.2f
Causal chain: %v
Affected scope: %s
Recommendations: %v

%s`,
		alertSummary, finding.Status, rootCause, finding.Confidence, finding.CausalChain, finding.AffectedScope, finding.Recommendations, rubricInstructions)
}
