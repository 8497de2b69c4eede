package intake

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/54b3r/legalrag-go/internal/urgency"
)

// CaseInput is a single intake request.
type CaseInput struct {
	// CaseDescription is the free-text description of the matter. Required.
	CaseDescription string `json:"case_description"`
	// TrialDate is the scheduled trial date as YYYY-MM-DD. When present it
	// determines urgency regardless of what the model says.
	TrialDate string `json:"trial_date"`
}

// CaseTypes holds one or more inferred case types. Models answer with either
// a string or an array; both decode here. A single type encodes back to a
// string and several to an array, mirroring the shape the model used.
type CaseTypes []string

// UnmarshalJSON accepts a JSON string or an array. Non-string values
// (numbers, objects, booleans, null) carry no usable type and decode to an
// empty list, as do non-string array elements, so the rest of the answer is
// kept.
func (c *CaseTypes) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0:
		*c = nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = splitTypes([]string{s})
	case b[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		list := make([]string, 0, len(items))
		for _, item := range items {
			var s string
			if json.Unmarshal(item, &s) == nil {
				list = append(list, s)
			}
		}
		*c = splitTypes(list)
	default:
		*c = nil
	}
	return nil
}

// MarshalJSON encodes a single type as a string and several as an array.
func (c CaseTypes) MarshalJSON() ([]byte, error) {
	switch len(c) {
	case 0:
		return json.Marshal(UnknownCaseType)
	case 1:
		return json.Marshal(c[0])
	default:
		return json.Marshal([]string(c))
	}
}

// String joins the types for logs and CLI output.
func (c CaseTypes) String() string {
	return strings.Join(c, ", ")
}

// splitTypes trims entries and drops empties.
func splitTypes(in []string) CaseTypes {
	out := make(CaseTypes, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// UnknownCaseType is reported when the model gives no usable case type.
const UnknownCaseType = "unknown"

// Classification is the structured answer for one case.
type Classification struct {
	CaseType  CaseTypes     `json:"case_type"`
	Urgency   urgency.Level `json:"urgency"`
	Reasoning string        `json:"reasoning"`
}

// Result is the outcome of one prediction: the retrieval query that was run
// and the classification.
type Result struct {
	Query    string         `json:"query"`
	Response Classification `json:"response"`

	// Fallback is set when the model output could not be parsed and
	// Response holds the fixed fallback payload.
	Fallback bool `json:"-"`
	// Sources are the documents that were placed in the prompt.
	Sources []string `json:"-"`
}

// Prediction is the HTTP response envelope: the echoed input plus the result.
type Prediction struct {
	Input    CaseInput `json:"input"`
	Response *Result   `json:"response"`
}
