package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON locates the single JSON object inside a raw model response
// (first '{' to last '}') and unmarshals it into v. Model output often wraps
// the object in prose or markdown fences, so a plain unmarshal is not enough.
func ExtractJSON(raw string, v any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return fmt.Errorf("no JSON object in response (raw: %s)", truncate(raw, 200))
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return fmt.Errorf("parse response JSON: %w (raw: %s)", err, truncate(raw, 200))
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
