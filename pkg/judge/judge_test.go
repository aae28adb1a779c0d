package judge

import (
	"context"
	"testing"

	"github.com/jordigilh/investigator/pkg/domain"
)

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) CompleteText(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func TestValidateInterpretation_PassesAboveThreshold(t *testing.T) {
	completer := &fakeCompleter{response: `{"causal_depth": 0.9, "specificity": 0.8, "actionability": 0.7, "improvement_suggestion": ""}`}
	j := NewJudge(completer)

	result, err := j.ValidateInterpretation(context.Background(), domain.Evidence{}, "upstream outage", "SELECT 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Passed {
		t.Fatalf("expected pass, got composite %f", result.Assessment.CompositeScore)
	}
	expected := 0.5*0.9 + 0.3*0.8 + 0.2*0.7
	if result.Assessment.CompositeScore != expected {
		t.Errorf("expected composite %f, got %f", expected, result.Assessment.CompositeScore)
	}
}

func TestValidateInterpretation_FailsBelowThreshold(t *testing.T) {
	completer := &fakeCompleter{response: `{"causal_depth": 0.1, "specificity": 0.2, "actionability": 0.1, "improvement_suggestion": "Name the specific upstream table and column involved."}`}
	j := NewJudge(completer)

	result, err := j.ValidateInterpretation(context.Background(), domain.Evidence{}, "upstream outage", "SELECT 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passed {
		t.Fatal("expected failure below pass threshold")
	}
	if result.Assessment.LowestDimension != "causal_depth" && result.Assessment.LowestDimension != "actionability" {
		t.Errorf("unexpected lowest dimension %q", result.Assessment.LowestDimension)
	}
	if len(result.Assessment.ImprovementSuggestion) < minImprovementSuggestionLen {
		t.Errorf("expected improvement suggestion >= %d chars, got %q", minImprovementSuggestionLen, result.Assessment.ImprovementSuggestion)
	}
}

func TestValidateInterpretation_PadsShortSuggestion(t *testing.T) {
	completer := &fakeCompleter{response: `{"causal_depth": 0.1, "specificity": 0.1, "actionability": 0.1, "improvement_suggestion": "too vague"}`}
	j := NewJudge(completer)

	result, err := j.ValidateInterpretation(context.Background(), domain.Evidence{}, "h", "SELECT 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Assessment.ImprovementSuggestion) < minImprovementSuggestionLen {
		t.Errorf("expected padded suggestion >= %d chars, got %q (%d)", minImprovementSuggestionLen, result.Assessment.ImprovementSuggestion, len(result.Assessment.ImprovementSuggestion))
	}
}

func TestAssessSet_HighVarianceDiscriminates(t *testing.T) {
	assessment := AssessSet([]float64{0.1, 0.9, 0.2, 0.85})
	if assessment.DiscriminationScore != 1.0 {
		t.Errorf("expected discrimination score capped at 1.0 for high variance, got %f", assessment.DiscriminationScore)
	}
	if assessment.AllSupportingPenalty != 1.0 {
		t.Errorf("expected no all-supporting penalty, got %f", assessment.AllSupportingPenalty)
	}
}

func TestAssessSet_AllSupportingPenalized(t *testing.T) {
	assessment := AssessSet([]float64{0.75, 0.8, 0.9, 0.95})
	if assessment.AllSupportingPenalty != 0.5 {
		t.Errorf("expected all-supporting penalty of 0.5 when every composite > 0.7, got %f", assessment.AllSupportingPenalty)
	}
}

func TestAssessSet_EmptyReturnsZeroValue(t *testing.T) {
	assessment := AssessSet(nil)
	if assessment.MeanComposite != 0 || assessment.AdjustedComposite != 0 {
		t.Errorf("expected zero value for empty composites, got %+v", assessment)
	}
}
