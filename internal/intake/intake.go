// Package intake runs the case classification pipeline: build a retrieval
// query from the case, fetch related legal documents, ask the chat model for
// a JSON classification and post-process the answer. A trial date, when
// given, decides urgency deterministically.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/legalrag-go/internal/budget"
	"github.com/54b3r/legalrag-go/internal/logging"
	"github.com/54b3r/legalrag-go/internal/provider"
	"github.com/54b3r/legalrag-go/internal/rag"
	"github.com/54b3r/legalrag-go/internal/store"
	"github.com/54b3r/legalrag-go/internal/urgency"
)

var (
	// ErrEmptyDescription is returned when the case description is blank.
	ErrEmptyDescription = errors.New("intake: case_description must not be empty")
	// ErrRetrieval wraps failures of the embedding or vector search step.
	ErrRetrieval = errors.New("intake: retrieval failed")
	// ErrModel wraps failures of the chat model call.
	ErrModel = errors.New("intake: model call failed")
)

// Config holds the dependencies required to construct a Service.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	ChatModel model.BaseChatModel

	// Retriever fetches related documents for the case query. Required.
	Retriever rag.Retriever

	// TopK is the number of documents retrieved per case. Defaults to
	// rag.DefaultTopK if zero.
	TopK int

	// MaxContextTokens is the estimated token budget for the prompt. The
	// lowest-ranked documents are dropped to fit. Defaults to
	// budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int

	// Tuning is applied to every model call. Zero values leave the backend
	// defaults in place.
	Tuning provider.SharedTuning

	// History persists each prediction. Optional.
	History store.PredictionStore

	// Now returns the current time for trial date bucketing. Defaults to time.Now.
	Now func() time.Time
}

// Service classifies case descriptions.
type Service struct {
	template  prompt.ChatTemplate
	runnable  compose.Runnable[map[string]any, *schema.Message]
	retriever rag.Retriever
	topK      int
	maxTokens int
	tuning    provider.SharedTuning
	history   store.PredictionStore
	now       func() time.Time
}

// New compiles the prompt-to-model chain and returns a ready Service.
func New(ctx context.Context, cfg *Config) (*Service, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("intake: ChatModel must not be nil")
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("intake: Retriever must not be nil")
	}

	tmpl := newTemplate()
	chain := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(tmpl).
		AppendChatModel(cfg.ChatModel)
	runnable, err := chain.Compile(ctx, compose.WithGraphName("case_intake"))
	if err != nil {
		return nil, fmt.Errorf("intake: compile chain: %w", err)
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	maxTokens := cfg.MaxContextTokens
	if maxTokens <= 0 {
		maxTokens = budget.DefaultMaxContextTokens
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		template:  tmpl,
		runnable:  runnable,
		retriever: cfg.Retriever,
		topK:      topK,
		maxTokens: maxTokens,
		tuning:    cfg.Tuning,
		history:   cfg.History,
		now:       now,
	}, nil
}

// Predict classifies one case. Retrieval and model failures are returned as
// errors wrapping ErrRetrieval and ErrModel; unparseable model output is not
// an error and yields the fallback classification.
func (s *Service) Predict(ctx context.Context, in CaseInput) (*Result, error) {
	in.CaseDescription = strings.TrimSpace(in.CaseDescription)
	in.TrialDate = strings.TrimSpace(in.TrialDate)
	if in.CaseDescription == "" {
		return nil, ErrEmptyDescription
	}
	log := logging.FromContext(ctx)

	query := BuildQuery(in)
	docs, err := s.retriever.Retrieve(ctx, query, s.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	docs, err = s.fitDocuments(ctx, query, docs)
	if err != nil {
		return nil, err
	}

	msg, err := s.runnable.Invoke(ctx, promptVars(query, docs),
		compose.WithChatModelOption(s.modelOptions()...))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModel, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: empty response", ErrModel)
	}

	cls, ok := ParseClassification(msg.Content)
	if !ok {
		log.Warn("intake: model output was not valid JSON, using fallback",
			slog.Int("output_len", len(msg.Content)))
	}
	if in.TrialDate != "" {
		cls.Urgency = urgency.FromDate(in.TrialDate, s.now())
	}

	res := &Result{
		Query:    query,
		Response: cls,
		Fallback: !ok,
		Sources:  sources(docs),
	}
	log.Info("intake: case classified",
		slog.String("case_type", cls.CaseType.String()),
		slog.String("urgency", string(cls.Urgency)),
		slog.Int("documents", len(docs)),
		slog.Any("sources", res.Sources),
		slog.Bool("fallback", !ok),
	)

	s.record(ctx, in, res)
	return res, nil
}

// fitDocuments drops the lowest-ranked documents that do not fit the prompt
// budget.
func (s *Service) fitDocuments(ctx context.Context, query string, docs []rag.Document) ([]rag.Document, error) {
	fixed, err := s.template.Format(ctx, promptVars(query, nil))
	if err != nil {
		return nil, fmt.Errorf("intake: format prompt: %w", err)
	}
	kept := budget.TrimDocuments(fixed, docs, s.maxTokens)
	if dropped := len(docs) - len(kept); dropped > 0 {
		logging.FromContext(ctx).Warn("budget: dropped documents to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(kept)),
			slog.Int("max_tokens", s.maxTokens),
		)
	}
	return kept, nil
}

func (s *Service) modelOptions() []model.Option {
	var opts []model.Option
	if s.tuning.Temperature > 0 {
		opts = append(opts, model.WithTemperature(s.tuning.Temperature))
	}
	if s.tuning.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(s.tuning.MaxTokens))
	}
	return opts
}

// record persists the prediction. Failures are logged, never returned.
func (s *Service) record(ctx context.Context, in CaseInput, res *Result) {
	if s.history == nil {
		return
	}
	_, err := s.history.Append(ctx, store.Record{
		CaseDescription: in.CaseDescription,
		TrialDate:       in.TrialDate,
		Query:           res.Query,
		CaseTypes:       []string(res.Response.CaseType),
		Urgency:         string(res.Response.Urgency),
		Reasoning:       res.Response.Reasoning,
		Fallback:        res.Fallback,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("history: failed to persist prediction", slog.Any("error", err))
	}
}

func sources(docs []rag.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Source != "" {
			out = append(out, d.Source)
		}
	}
	return out
}
