package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseJSON decodes an LLM completion into out, tolerating the common
// ways a model wraps its JSON: a fenced ```json ... ``` block, or JSON
// surrounded by explanatory prose. It tries, in order: a direct parse,
// parsing the contents of the first fenced code block, and parsing the
// substring between the first '{' and the last '}'.
func ParseJSON(text string, out interface{}) error {
	trimmed := strings.TrimSpace(text)

	if err := json.Unmarshal([]byte(trimmed), out); err == nil {
		return nil
	}

	if m := fencedJSONPattern.FindStringSubmatch(trimmed); m != nil {
		if err := json.Unmarshal([]byte(m[1]), out); err == nil {
			return nil
		}
	}

	if start := strings.IndexByte(trimmed, '{'); start != -1 {
		if end := strings.LastIndexByte(trimmed, '}'); end > start {
			candidate := trimmed[start : end+1]
			if err := json.Unmarshal([]byte(candidate), out); err == nil {
				return nil
			}
		}
	}

	preview := trimmed
	if len(preview) > 500 {
		preview = preview[:500] + "... (truncated)"
	}
	return fmt.Errorf("failed to parse LLM response as JSON after trying direct, fenced, and extracted forms: %s", preview)
}
