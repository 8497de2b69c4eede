package budget

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/legalrag-go/internal/rag"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 1},
		{"abcdefgh", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		if got := Estimate(tc.input); got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func Test_EstimateMessages(t *testing.T) {
	t.Parallel()
	msgs := []*schema.Message{
		schema.UserMessage("hello world"),
		schema.UserMessage("hello world"),
	}
	// each: 4 overhead + Estimate("user")=1 + Estimate("hello world")=2
	if got := EstimateMessages(msgs); got != 14 {
		t.Errorf("EstimateMessages = %d, want 14", got)
	}
}

func Test_EstimateDocument(t *testing.T) {
	t.Parallel()
	plain := rag.Document{Content: strings.Repeat("x", 40)}
	if got := EstimateDocument(plain); got != 14 {
		t.Errorf("EstimateDocument(no metadata) = %d, want 14", got)
	}

	// {"doc_type":"statute"} is 22 chars → 5 tokens + 4 overhead
	withMeta := rag.Document{Content: strings.Repeat("x", 40), Metadata: map[string]any{"doc_type": "statute"}}
	if got := EstimateDocument(withMeta); got != 23 {
		t.Errorf("EstimateDocument(with metadata) = %d, want 23", got)
	}
}

func Test_TrimDocuments_NoTrimNeeded(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{schema.SystemMessage("sys")}
	docs := []rag.Document{{Content: "a"}, {Content: "b"}}
	if got := TrimDocuments(fixed, docs, DefaultMaxContextTokens); len(got) != 2 {
		t.Errorf("want 2 docs, got %d", len(got))
	}
}

func Test_TrimDocuments_DropsLowestRanked(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{
		{ID: "best", Content: strings.Repeat("x", 40)},   // 14 tokens
		{ID: "second", Content: strings.Repeat("y", 40)}, // 14 tokens
		{ID: "third", Content: strings.Repeat("z", 40)},  // 14 tokens
	}
	got := TrimDocuments(nil, docs, 30)
	if len(got) != 2 {
		t.Fatalf("want 2 docs after trim, got %d", len(got))
	}
	if got[0].ID != "best" || got[1].ID != "second" {
		t.Errorf("want best-ranked docs retained, got %s, %s", got[0].ID, got[1].ID)
	}
}

func Test_TrimDocuments_StopsAtFirstOversizedDoc(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{
		{ID: "small", Content: "a"},
		{ID: "huge", Content: strings.Repeat("x", 4000)},
		{ID: "small2", Content: "b"},
	}
	// rank order is preserved; a lower-ranked doc never displaces a higher one
	got := TrimDocuments(nil, docs, 100)
	if len(got) != 1 || got[0].ID != "small" {
		t.Errorf("want only the top doc, got %+v", got)
	}
}

func Test_TrimDocuments_AllDroppedWhenFixedExceedsBudget(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{schema.SystemMessage(strings.Repeat("x", 4*7000))}
	docs := []rag.Document{{Content: "a"}}
	if got := TrimDocuments(fixed, docs, 6000); len(got) != 0 {
		t.Errorf("want 0 docs, got %d", len(got))
	}
}

func Test_TrimDocuments_Empty(t *testing.T) {
	t.Parallel()
	if got := TrimDocuments(nil, nil, 10); len(got) != 0 {
		t.Errorf("want empty, got %d", len(got))
	}
}
