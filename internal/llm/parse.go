package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes markdown code fences (``` or ```json) that models wrap
// around JSON despite being told not to.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ParseJSON strips fences from an oracle reply and decodes the remainder into v.
func ParseJSON(content string, v any) error {
	raw := StripFences(content)
	if raw == "" {
		return fmt.Errorf("empty response")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
