package intake

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/legalrag-go/internal/urgency"
)

func TestStripCodeFence(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"upper tag", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json {\"a\":1} ```\n ", `{"a":1}`},
		{"only opening fence", "```json\n{\"a\":1}", "```json\n{\"a\":1}"},
		{"prose", " hello ", "hello"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, StripCodeFence(tc.in))
		})
	}
}

func TestParseClassification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		raw       string
		wantOK    bool
		wantTypes CaseTypes
		wantUrg   urgency.Level
	}{
		{"string case type", `{"case_type":"divorce","urgency":"normal","reasoning":"r"}`, true, CaseTypes{"divorce"}, urgency.Normal},
		{"array case type", `{"case_type":["fraud","embezzlement"],"urgency":"high","reasoning":"r"}`, true, CaseTypes{"fraud", "embezzlement"}, urgency.High},
		{"unknown urgency normalizes", `{"case_type":"tort","urgency":"critical","reasoning":"r"}`, true, CaseTypes{"tort"}, urgency.Normal},
		{"missing case type", `{"urgency":"urgent","reasoning":"r"}`, true, CaseTypes{UnknownCaseType}, urgency.Urgent},
		{"array payload", `["a","b"]`, false, CaseTypes{UnknownCaseType}, urgency.Normal},
		{"numeric case type keeps urgency", `{"case_type":42,"urgency":"urgent","reasoning":"r"}`, true, CaseTypes{UnknownCaseType}, urgency.Urgent},
		{"object case type keeps urgency", `{"case_type":{"primary":"tort"},"urgency":"high","reasoning":"r"}`, true, CaseTypes{UnknownCaseType}, urgency.High},
		{"mixed array keeps strings", `{"case_type":["fraud",7,null],"urgency":"normal","reasoning":"r"}`, true, CaseTypes{"fraud"}, urgency.Normal},
		{"truncated", `{"case_type":"x"`, false, CaseTypes{UnknownCaseType}, urgency.Normal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseClassification(tc.raw)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantTypes, got.CaseType)
			assert.Equal(t, tc.wantUrg, got.Urgency)
			if !ok {
				assert.Equal(t, fallbackReasoningPrefix+tc.raw, got.Reasoning)
			} else if strings.Contains(tc.raw, `"reasoning":"r"`) {
				assert.Equal(t, "r", got.Reasoning)
			}
		})
	}
}

func TestCaseTypes_JSONShape(t *testing.T) {
	t.Parallel()

	one, err := json.Marshal(Classification{CaseType: CaseTypes{"tort"}, Urgency: urgency.High, Reasoning: "r"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"case_type":"tort","urgency":"high","reasoning":"r"}`, string(one))

	many, err := json.Marshal(CaseTypes{"a", "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(many))

	none, err := json.Marshal(CaseTypes(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `"unknown"`, string(none))

	var ct CaseTypes
	require.NoError(t, json.Unmarshal([]byte(`[" a ", "", "b"]`), &ct))
	assert.Equal(t, CaseTypes{"a", "b"}, ct)
}

func TestBuildQuery(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Case: Lease dispute. Trial Date: 2025-05-01",
		BuildQuery(CaseInput{CaseDescription: "Lease dispute", TrialDate: "2025-05-01"}))
	assert.Equal(t, "Case: Lease dispute. Trial Date: ",
		BuildQuery(CaseInput{CaseDescription: "Lease dispute"}))
}
