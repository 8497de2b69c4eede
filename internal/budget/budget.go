// Package budget provides token budget estimation and context trimming for
// the intake prompt. Because the service supports multiple LLM backends with
// different tokenizers, it uses a conservative character-based heuristic:
// 1 token ≈ 4 characters of English prose.
package budget

import (
	"encoding/json"

	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/legalrag-go/internal/rag"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// perItemOverhead approximates the framing tokens around each message or
	// context entry.
	perItemOverhead = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// It fits 8k-context models while leaving room for the JSON answer.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += perItemOverhead
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// EstimateDocument returns the estimated prompt cost of one retrieved
// document: its content line plus its metadata line.
func EstimateDocument(d rag.Document) int {
	total := perItemOverhead + Estimate(d.Content)
	if len(d.Metadata) > 0 {
		if b, err := json.Marshal(d.Metadata); err == nil {
			total += perItemOverhead + Estimate(string(b))
		}
	}
	return total
}

// TrimDocuments drops the lowest-ranked documents (the tail of docs) until
// fixed + docs fits within maxTokens. fixed holds the messages that must not
// be trimmed (system prompt, case query). If even the top document does not
// fit, an empty slice is returned; callers decide whether that is fatal.
func TrimDocuments(fixed []*schema.Message, docs []rag.Document, maxTokens int) []rag.Document {
	if len(docs) == 0 {
		return docs
	}

	remaining := maxTokens - EstimateMessages(fixed)
	kept := 0
	for _, d := range docs {
		cost := EstimateDocument(d)
		if cost > remaining {
			break
		}
		remaining -= cost
		kept++
	}
	return docs[:kept]
}
