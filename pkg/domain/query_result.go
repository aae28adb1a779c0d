package domain

import (
	"fmt"
	"strings"
)

// ResultColumn describes one column of a QueryResult.
type ResultColumn struct {
	Name     string         `json:"name"`
	DataType NormalizedType `json:"data_type"`
}

// QueryResult is the frozen outcome of a successful execute_query call.
type QueryResult struct {
	Columns          []ResultColumn           `json:"columns"`
	Rows             []map[string]interface{} `json:"rows"`
	RowCount         int                      `json:"row_count"`
	Truncated        bool                     `json:"truncated"`
	ExecutionTimeMs  int64                    `json:"execution_time_ms"`
}

// Summary renders a compact textual description of the result for
// embedding in an LLM prompt, showing at most maxRows rows.
func (r QueryResult) Summary(maxRows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d row(s)", r.RowCount)
	if r.Truncated {
		b.WriteString(" (truncated)")
	}
	b.WriteString(":\n")

	colNames := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		colNames[i] = c.Name
	}
	b.WriteString(strings.Join(colNames, " | "))
	b.WriteString("\n")

	for i, row := range r.Rows {
		if i >= maxRows {
			fmt.Fprintf(&b, "... (%d more rows omitted)\n", len(r.Rows)-maxRows)
			break
		}
		values := make([]string, len(colNames))
		for j, name := range colNames {
			values[j] = fmt.Sprintf("%v", row[name])
		}
		b.WriteString(strings.Join(values, " | "))
		b.WriteString("\n")
	}

	return b.String()
}
