// Package contextengine assembles the InvestigationContext an
// orchestrator hands to the hypothesis-generation step: the target
// table's schema, its lineage neighborhood, heuristically related
// tables with correlation probes run against them, any time-series
// spike/drop around the alert's anomaly date, and upstream join-column
// null-rate anomalies.
package contextengine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jordigilh/investigator/pkg/domain"
	"github.com/jordigilh/investigator/pkg/lineage"
	"github.com/jordigilh/investigator/pkg/safety"
	"github.com/jordigilh/investigator/pkg/shared/math"
)

// QueryRunner is the minimal surface Assemble needs from a SQL adapter —
// just enough to run validated probes, decoupled from the adapter's
// connection lifecycle so this package can be tested against a fake.
type QueryRunner interface {
	ExecuteQuery(ctx context.Context, sql string) (domain.QueryResult, error)
}

// lineageDepth bounds every lineage traversal the engine performs.
const lineageDepth = 3

// correlationUnmatchedThreshold is the minimum unmatched-row rate a LEFT
// JOIN probe must show before a related table is recorded as a
// Correlation.
const correlationUnmatchedThreshold = 0.10

// upstreamNullRateThreshold is the minimum null rate a join column must
// show before it is recorded as an UpstreamAnomaly.
const upstreamNullRateThreshold = 0.05

// Engine assembles an InvestigationContext for one target table.
type Engine struct {
	Runner    QueryRunner
	Lineage   lineage.Provider // nil if no lineage provider is configured for this tenant
	Validator *safety.Validator
}

// NewEngine returns an Engine probing through runner and, if lineageProvider
// is non-nil, enriching context with lineage graph data.
func NewEngine(runner QueryRunner, lineageProvider lineage.Provider, validator *safety.Validator) *Engine {
	return &Engine{Runner: runner, Lineage: lineageProvider, Validator: validator}
}

// Assemble builds the InvestigationContext for alert against schema (the
// already-fetched schema of alert's data source).
func (e *Engine) Assemble(ctx context.Context, alert domain.AnomalyAlert, schema domain.SchemaResponse) (domain.InvestigationContext, error) {
	targetName := targetTableName(alert.DatasetID)
	target, ok := schema.FindTable(targetName)
	if !ok {
		return domain.InvestigationContext{}, &SchemaDiscoveryError{DatasetID: alert.DatasetID, Cause: fmt.Errorf("table %q not present in schema", targetName)}
	}

	investigationCtx := domain.InvestigationContext{Schema: schema}

	if e.Lineage != nil {
		if datasetID, err := domain.ParseDatasetID(alert.DatasetID); err == nil {
			if graph, err := e.Lineage.GetLineageGraph(ctx, datasetID, lineageDepth); err == nil {
				investigationCtx.Lineage = graph
			}
		}
	}

	related := relatedTables(target, schema)

	var correlations []domain.Correlation
	var upstreamAnomalies []domain.UpstreamAnomaly
	if e.Runner != nil {
		for _, rel := range related {
			if corr, ok := e.probeCorrelation(ctx, target, rel); ok {
				correlations = append(correlations, corr)
			}
			if anomaly, ok := e.probeNullRate(ctx, rel.table, rel.joinColumn); ok {
				upstreamAnomalies = append(upstreamAnomalies, anomaly)
			}
		}
	}
	investigationCtx.Correlations = correlations
	investigationCtx.UpstreamAnomalies = upstreamAnomalies

	if e.Runner != nil {
		if pattern, ok := e.detectPattern(ctx, target, alert); ok {
			investigationCtx.Pattern = pattern
		}
	}

	return investigationCtx, nil
}

// targetTableName extracts the bare table name from a dataset id that
// may be a qualified "platform://name" string or a bare table name.
func targetTableName(datasetID string) string {
	if idx := strings.Index(datasetID, "://"); idx != -1 {
		name := datasetID[idx+3:]
		if dot := strings.LastIndex(name, "."); dot != -1 {
			return name[dot+1:]
		}
		return name
	}
	if dot := strings.LastIndex(datasetID, "."); dot != -1 {
		return datasetID[dot+1:]
	}
	return datasetID
}

type relatedTable struct {
	table      domain.Table
	joinColumn string
}

// relatedTables finds every other table in schema that shares a join-shaped
// column with target — a column of the other table named "id" or ending in
// "_id" that target also has under the same name (compared
// case-insensitively). This is a heuristic, not a constraint lookup: the adapters this
// engine runs against don't expose foreign key metadata uniformly.
func relatedTables(target domain.Table, schema domain.SchemaResponse) []relatedTable {
	targetCols := map[string]bool{}
	for _, c := range target.Columns {
		targetCols[strings.ToLower(c.Name)] = true
	}

	var related []relatedTable
	for _, t := range schema.AllTables() {
		if t.Name == target.Name {
			continue
		}
		for _, c := range t.Columns {
			name := strings.ToLower(c.Name)
			if !strings.HasSuffix(name, "_id") && name != "id" {
				continue
			}
			if targetCols[name] {
				related = append(related, relatedTable{table: t, joinColumn: c.Name})
				break
			}
		}
	}
	return related
}

// probeCorrelation runs a LEFT JOIN between target and rel on rel.joinColumn
// and records a Correlation if the unmatched-row rate exceeds the
// threshold.
func (e *Engine) probeCorrelation(ctx context.Context, target domain.Table, rel relatedTable) (domain.Correlation, bool) {
	targetIdent, err := e.Validator.SanitizeIdentifier(target.Name)
	if err != nil {
		return domain.Correlation{}, false
	}
	relIdent, err := e.Validator.SanitizeIdentifier(rel.table.Name)
	if err != nil {
		return domain.Correlation{}, false
	}
	colIdent, err := e.Validator.SanitizeIdentifier(rel.joinColumn)
	if err != nil {
		return domain.Correlation{}, false
	}

	query := fmt.Sprintf(
		`SELECT
		   SUM(CASE WHEN r.%[3]s IS NULL THEN 1 ELSE 0 END) AS unmatched,
		   COUNT(*) AS total
		 FROM %[1]s t
		 LEFT JOIN %[2]s r ON t.%[3]s = r.%[3]s`,
		targetIdent, relIdent, colIdent)
	validated, err := e.Validator.ValidateQuery(query)
	if err != nil {
		return domain.Correlation{}, false
	}

	result, err := e.Runner.ExecuteQuery(ctx, validated)
	if err != nil || result.RowCount == 0 {
		return domain.Correlation{}, false
	}

	unmatched := toFloat(result.Rows[0]["unmatched"])
	total := toFloat(result.Rows[0]["total"])
	if total == 0 {
		return domain.Correlation{}, false
	}
	rate := unmatched / total
	if rate <= correlationUnmatchedThreshold {
		return domain.Correlation{}, false
	}

	return domain.Correlation{
		Table:         rel.table.Name,
		JoinColumn:    rel.joinColumn,
		Strength:      rate,
		EvidenceQuery: validated,
	}, true
}

// probeNullRate checks the null rate of joinColumn within table and
// records an UpstreamAnomaly if it exceeds the threshold.
func (e *Engine) probeNullRate(ctx context.Context, table domain.Table, joinColumn string) (domain.UpstreamAnomaly, bool) {
	tableIdent, err := e.Validator.SanitizeIdentifier(table.Name)
	if err != nil {
		return domain.UpstreamAnomaly{}, false
	}
	colIdent, err := e.Validator.SanitizeIdentifier(joinColumn)
	if err != nil {
		return domain.UpstreamAnomaly{}, false
	}

	query := fmt.Sprintf(
		`SELECT SUM(CASE WHEN %[2]s IS NULL THEN 1 ELSE 0 END) AS null_count, COUNT(*) AS total FROM %[1]s`,
		tableIdent, colIdent)
	validated, err := e.Validator.ValidateQuery(query)
	if err != nil {
		return domain.UpstreamAnomaly{}, false
	}

	result, err := e.Runner.ExecuteQuery(ctx, validated)
	if err != nil || result.RowCount == 0 {
		return domain.UpstreamAnomaly{}, false
	}

	nullCount := toFloat(result.Rows[0]["null_count"])
	total := toFloat(result.Rows[0]["total"])
	if total == 0 {
		return domain.UpstreamAnomaly{}, false
	}
	rate := nullCount / total
	if rate <= upstreamNullRateThreshold {
		return domain.UpstreamAnomaly{}, false
	}

	return domain.UpstreamAnomaly{Table: table.Name, Column: joinColumn, NullRate: rate, TotalRows: int(total)}, true
}

// detectPattern queries daily row counts for a +/-7 day window around
// alert.AnomalyDate and classifies a spike (max > 3x baseline) or drop
// (min < 0.5x baseline), where baseline is the median of the first three
// days of the window.
func (e *Engine) detectPattern(ctx context.Context, target domain.Table, alert domain.AnomalyAlert) (*domain.TimeSeriesPattern, bool) {
	dateColumn := dateColumnOf(target)
	if dateColumn == "" {
		return nil, false
	}
	tableIdent, err := e.Validator.SanitizeIdentifier(target.Name)
	if err != nil {
		return nil, false
	}
	colIdent, err := e.Validator.SanitizeIdentifier(dateColumn)
	if err != nil {
		return nil, false
	}

	windowStart := alert.AnomalyDate.AddDate(0, 0, -7)
	windowEnd := alert.AnomalyDate.AddDate(0, 0, 7)

	query := fmt.Sprintf(
		`SELECT DATE(%[2]s) AS day, COUNT(*) AS row_count
		 FROM %[1]s
		 WHERE %[2]s >= '%[3]s' AND %[2]s <= '%[4]s'
		 GROUP BY DATE(%[2]s)
		 ORDER BY day`,
		tableIdent, colIdent, windowStart.Format("2006-01-02"), windowEnd.Format("2006-01-02"))
	validated, err := e.Validator.ValidateQuery(query)
	if err != nil {
		return nil, false
	}

	result, err := e.Runner.ExecuteQuery(ctx, validated)
	if err != nil || len(result.Rows) < 4 {
		return nil, false
	}

	type dayCount struct {
		day   string
		count float64
	}
	var series []dayCount
	for _, row := range result.Rows {
		series = append(series, dayCount{day: fmt.Sprintf("%v", row["day"]), count: toFloat(row["row_count"])})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].day < series[j].day })

	firstThree := make([]float64, 0, 3)
	for i := 0; i < 3 && i < len(series); i++ {
		firstThree = append(firstThree, series[i].count)
	}
	baseline := math.Median(firstThree)
	if baseline == 0 {
		return nil, false
	}

	var maxVal, minVal float64
	maxVal, minVal = series[0].count, series[0].count
	for _, d := range series {
		if d.count > maxVal {
			maxVal = d.count
		}
		if d.count < minVal {
			minVal = d.count
		}
	}

	switch {
	case maxVal > 3*baseline:
		severity := (maxVal - baseline) / baseline
		if severity > 10 {
			severity = 10
		}
		return &domain.TimeSeriesPattern{
			Kind: "spike", Severity: severity,
			StartDate: series[0].day, EndDate: series[len(series)-1].day,
			Baseline: baseline, PeakValue: maxVal,
		}, true
	case minVal < 0.5*baseline:
		severity := (baseline - minVal) / baseline
		return &domain.TimeSeriesPattern{
			Kind: "drop", Severity: severity,
			StartDate: series[0].day, EndDate: series[len(series)-1].day,
			Baseline: baseline, PeakValue: minVal,
		}, true
	default:
		return nil, false
	}
}

// dateColumnOf returns the first column in table whose normalized type is
// a date/datetime/timestamp kind, or "" if none is found.
func dateColumnOf(table domain.Table) string {
	for _, c := range table.Columns {
		switch c.DataType {
		case domain.TypeDate, domain.TypeDatetime, domain.TypeTimestamp:
			return c.Name
		}
	}
	return ""
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
