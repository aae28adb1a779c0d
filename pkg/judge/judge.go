// Package judge implements the LLM-as-judge quality rubric that decides
// whether an interpretation or a synthesized finding is substantive
// enough to accept, and aggregates those per-call scores across an
// investigation into a discrimination-aware set assessment.
package judge

import (
	"context"
	"fmt"
	"strings"

	"github.com/jordigilh/investigator/pkg/domain"
	"github.com/jordigilh/investigator/pkg/llm"
	"github.com/jordigilh/investigator/pkg/shared/math"
)

// defaultPassThreshold is the composite score an assessment must meet or
// exceed to be accepted.
const defaultPassThreshold = 0.6

// minImprovementSuggestionLen is the invariant enforced on a failing
// assessment's improvement_suggestion.
const minImprovementSuggestionLen = 20

const (
	causalDepthWeight   = 0.5
	specificityWeight   = 0.3
	actionabilityWeight = 0.2
)

// Judge scores LLM output against the fixed three-dimension rubric.
type Judge struct {
	completer     llm.TextCompleter
	passThreshold float64
}

// NewJudge builds a Judge backed by completer, using the default pass
// threshold of 0.6. Pass a non-nil completer distinct from the
// investigation's own LLM client to score with a different model.
func NewJudge(completer llm.TextCompleter) *Judge {
	return &Judge{completer: completer, passThreshold: defaultPassThreshold}
}

// WithPassThreshold returns a copy of j using threshold instead of the
// default 0.6.
func (j *Judge) WithPassThreshold(threshold float64) *Judge {
	clone := *j
	clone.passThreshold = threshold
	return &clone
}

type rubricResponse struct {
	CausalDepth           float64 `json:"causal_depth"`
	Specificity           float64 `json:"specificity"`
	Actionability         float64 `json:"actionability"`
	ImprovementSuggestion string  `json:"improvement_suggestion"`
}

func (j *Judge) score(ctx context.Context, prompt string) (domain.QualityAssessment, error) {
	text, err := j.completer.CompleteText(ctx, prompt)
	if err != nil {
		return domain.QualityAssessment{}, fmt.Errorf("judge rubric call: %w", err)
	}
	var parsed rubricResponse
	if err := llm.ParseJSON(text, &parsed); err != nil {
		return domain.QualityAssessment{}, fmt.Errorf("judge rubric response: %w", err)
	}

	composite := causalDepthWeight*parsed.CausalDepth + specificityWeight*parsed.Specificity + actionabilityWeight*parsed.Actionability

	lowest := "causal_depth"
	lowestVal := parsed.CausalDepth
	if parsed.Specificity < lowestVal {
		lowest, lowestVal = "specificity", parsed.Specificity
	}
	if parsed.Actionability < lowestVal {
		lowest = "actionability"
	}

	suggestion := strings.TrimSpace(parsed.ImprovementSuggestion)
	if len(suggestion) < minImprovementSuggestionLen {
		suggestion = padSuggestion(suggestion, lowest)
	}

	return domain.QualityAssessment{
		CausalDepth:           parsed.CausalDepth,
		Specificity:           parsed.Specificity,
		Actionability:         parsed.Actionability,
		CompositeScore:        composite,
		LowestDimension:       lowest,
		ImprovementSuggestion: suggestion,
	}, nil
}

// padSuggestion ensures improvement_suggestion always satisfies the
// invariant even when a model returns a terse or empty one.
func padSuggestion(suggestion, lowestDimension string) string {
	if suggestion == "" {
		return fmt.Sprintf("Strengthen the %s dimension with more concrete, evidence-grounded detail.", lowestDimension)
	}
	return suggestion + fmt.Sprintf(" (weakest dimension: %s)", lowestDimension)
}

// ValidateInterpretation scores one hypothesis's evidence interpretation
// against the rubric.
func (j *Judge) ValidateInterpretation(ctx context.Context, evidence domain.Evidence, hypothesisTitle, query string) (domain.ValidationResult, error) {
	prompt := interpretationRubricPrompt(evidence, hypothesisTitle, query)
	assessment, err := j.score(ctx, prompt)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return domain.ValidationResult{Assessment: assessment, Passed: assessment.CompositeScore >= j.passThreshold}, nil
}

// ValidateSynthesis scores a final synthesized finding against the
// rubric.
func (j *Judge) ValidateSynthesis(ctx context.Context, finding domain.Finding, alertSummary string) (domain.ValidationResult, error) {
	prompt := synthesisRubricPrompt(finding, alertSummary)
	assessment, err := j.score(ctx, prompt)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return domain.ValidationResult{Assessment: assessment, Passed: assessment.CompositeScore >= j.passThreshold}, nil
}

// AssessSet aggregates composites into a HypothesisSetAssessment: high
// variance across composites indicates the judge is discriminating
// between well- and poorly-supported hypotheses rather than rubber-
// stamping all of them, and a set where every composite exceeds 0.7 is
// penalized as likely sycophantic.
func AssessSet(composites []float64) domain.HypothesisSetAssessment {
	if len(composites) == 0 {
		return domain.HypothesisSetAssessment{}
	}

	mean := math.Mean(composites)
	variance := math.Variance(composites)
	discrimination := variance / 0.1
	if discrimination > 1.0 {
		discrimination = 1.0
	}

	allSupporting := true
	for _, c := range composites {
		if c <= 0.7 {
			allSupporting = false
			break
		}
	}
	penalty := 1.0
	if allSupporting {
		penalty = 0.5
	}

	return domain.HypothesisSetAssessment{
		Composites:           composites,
		MeanComposite:        mean,
		DiscriminationScore:  discrimination,
		AllSupportingPenalty: penalty,
		AdjustedComposite:    mean * discrimination * penalty,
	}
}
