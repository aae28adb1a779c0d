package domain

import "time"

// MetricSpec identifies the metric an AnomalyAlert was raised against.
type MetricSpec struct {
	Kind        string `json:"kind"`
	Column      string `json:"column"`
	DisplayName string `json:"display_name"`
}

// AnomalyAlert is the immutable input that triggers an investigation.
// Its fields are never mutated after construction.
type AnomalyAlert struct {
	DatasetID    string                 `json:"dataset_id"`
	MetricSpec   MetricSpec             `json:"metric_spec"`
	AnomalyType  string                 `json:"anomaly_type"`
	ExpectedValue float64               `json:"expected_value"`
	ActualValue  float64                `json:"actual_value"`
	DeviationPct float64                `json:"deviation_pct"`
	AnomalyDate  time.Time              `json:"anomaly_date"`
	Severity     Severity               `json:"severity"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Valid reports whether the alert satisfies its one invariant:
// deviation_pct must be non-negative.
func (a AnomalyAlert) Valid() bool {
	return a.DeviationPct >= 0
}

// Summary renders a short human-readable description of the alert, used
// when building LLM prompts and log lines.
func (a AnomalyAlert) Summary() string {
	return a.DatasetID + " " + a.AnomalyType + " expected=" +
		formatFloat(a.ExpectedValue) + " actual=" + formatFloat(a.ActualValue) +
		" deviation=" + formatFloat(a.DeviationPct) + "%"
}
