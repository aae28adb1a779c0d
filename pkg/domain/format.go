package domain

import "strconv"

// formatFloat renders a float64 with trailing zeros trimmed, used when
// building compact human-readable summaries for prompts and logs.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
