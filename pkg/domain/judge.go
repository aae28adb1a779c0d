package domain

// QualityAssessment is the judge's rubric-scored verdict on one piece of
// LLM output (an interpretation or a synthesized finding): three
// dimensions on [0,1], combined into a weighted composite.
type QualityAssessment struct {
	CausalDepth           float64 `json:"causal_depth"`
	Specificity           float64 `json:"specificity"`
	Actionability         float64 `json:"actionability"`
	CompositeScore        float64 `json:"composite_score"`
	LowestDimension        string  `json:"lowest_dimension"`
	ImprovementSuggestion string  `json:"improvement_suggestion"`
}

// ValidationResult pairs a QualityAssessment with the pass/fail verdict
// derived from the configured pass threshold.
type ValidationResult struct {
	Assessment QualityAssessment `json:"assessment"`
	Passed     bool               `json:"passed"`
}

// HypothesisSetAssessment aggregates every QualityAssessment produced
// across one investigation's evidence into a single discrimination-aware
// score, penalizing a judge that rubber-stamps every hypothesis as
// equally well-supported.
type HypothesisSetAssessment struct {
	Composites          []float64 `json:"composites"`
	MeanComposite        float64   `json:"mean_composite"`
	DiscriminationScore  float64   `json:"discrimination_score"`
	AllSupportingPenalty float64   `json:"all_supporting_penalty"`
	AdjustedComposite    float64   `json:"adjusted_composite"`
}
