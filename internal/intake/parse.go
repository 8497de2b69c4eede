package intake

import (
	"encoding/json"
	"strings"

	"github.com/54b3r/legalrag-go/internal/urgency"
)

// fallbackReasoningPrefix starts the reasoning of the fallback payload.
const fallbackReasoningPrefix = "Failed to parse model response. Raw output: "

// StripCodeFence removes a surrounding markdown code fence from model output.
// Only text that both starts and ends with ``` is touched; a leading
// case-insensitive "json" language tag is dropped with it.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") {
		return s
	}
	s = strings.Trim(s, "`")
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}
	return strings.TrimSpace(s)
}

// modelAnswer is the wire shape the model is asked to produce.
type modelAnswer struct {
	CaseType  CaseTypes `json:"case_type"`
	Urgency   string    `json:"urgency"`
	Reasoning string    `json:"reasoning"`
}

// ParseClassification decodes model output into a Classification. When the
// text is not a JSON object of the expected shape it returns the fallback
// payload and ok=false; the raw text is embedded in the reasoning.
func ParseClassification(raw string) (c Classification, ok bool) {
	text := StripCodeFence(raw)

	var ans modelAnswer
	if err := json.Unmarshal([]byte(text), &ans); err != nil || !isObject(text) {
		return Fallback(text), false
	}

	types := ans.CaseType
	if len(types) == 0 {
		types = CaseTypes{UnknownCaseType}
	}
	return Classification{
		CaseType:  types,
		Urgency:   urgency.Normalize(ans.Urgency),
		Reasoning: strings.TrimSpace(ans.Reasoning),
	}, true
}

// Fallback returns the fixed payload used when model output is unusable.
func Fallback(raw string) Classification {
	return Classification{
		CaseType:  CaseTypes{UnknownCaseType},
		Urgency:   urgency.Normal,
		Reasoning: fallbackReasoningPrefix + raw,
	}
}

// isObject reports whether text is a JSON object rather than an array,
// string or number.
func isObject(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "{")
}
