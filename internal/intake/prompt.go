package intake

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/legalrag-go/internal/rag"
)

// systemPrompt sets the persona and the answer contract. It must not contain
// braces: it is rendered as an FString template.
const systemPrompt = `You are a legal assistant AI.
Analyze the following context and query, then return ONLY the following fields in JSON format:
- case_type: inferred case type(s)
- urgency: classify as "urgent", "high" or "normal"
- reasoning: a short explanation of why you classified it this way`

// userTemplate carries the retrieved context and the case query.
const userTemplate = `Context:
{context}

Metadata:
{metadata}

Query:
{query}

Respond strictly in JSON with keys: case_type, urgency, reasoning. Do not include anything else.`

// Template variable names.
const (
	varContext  = "context"
	varMetadata = "metadata"
	varQuery    = "query"
)

// newTemplate builds the classification chat template.
func newTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userTemplate),
	)
}

// BuildQuery renders the retrieval query for a case.
func BuildQuery(in CaseInput) string {
	return fmt.Sprintf("Case: %s. Trial Date: %s", in.CaseDescription, in.TrialDate)
}

// promptVars renders the template variables for query and docs.
// Empty document contents are skipped in the context block; every document
// contributes a numbered metadata line.
func promptVars(query string, docs []rag.Document) map[string]any {
	contents := make([]string, 0, len(docs))
	metas := make([]string, 0, len(docs))
	for i, d := range docs {
		if d.Content != "" {
			contents = append(contents, d.Content)
		}
		metas = append(metas, fmt.Sprintf("Metadata %d: %s", i+1, metadataJSON(d.Metadata)))
	}
	return map[string]any{
		varContext:  strings.Join(contents, "\n"),
		varMetadata: strings.Join(metas, "\n"),
		varQuery:    query,
	}
}

// metadataJSON encodes m for the prompt; nil encodes as {}.
func metadataJSON(m map[string]any) string {
	if m == nil {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}
