package intent

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenced = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSON decodes the model output into v. It tries the raw text, then a
// fenced code block, then the span from the first '{' to the last '}'.
func extractJSON(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	if m := fenced.FindStringSubmatch(raw); m != nil {
		if err := json.Unmarshal([]byte(m[1]), v); err == nil {
			return nil
		}
	}

	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first >= 0 && last > first {
		if err := json.Unmarshal([]byte(raw[first:last+1]), v); err == nil {
			return nil
		}
	}
	return ErrUnparseable
}
