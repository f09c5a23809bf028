package rag

import (
	"context"
	"errors"
	"time"

	"github.com/mwiater/gyan/internal/appconfig"
	"github.com/mwiater/gyan/internal/logging"
	"github.com/mwiater/gyan/internal/metrics"
	"github.com/mwiater/gyan/internal/providers"
)

// Fixed answers returned instead of errors.
const (
	AnswerModelNotLoaded = "Error: AI Model not loaded."
	AnswerNoMatch        = "No relevant information found."
	AnswerUnavailable    = "Error: unable to generate an answer right now."
)

// Outcome labels for a finished request.
const (
	OutcomeAnswered        = "answered"
	OutcomeNoGenerator     = "no_generator"
	OutcomeNoMatch         = "no_match"
	OutcomeRetrievalFailed = "retrieval_failed"
	OutcomeGenerateFailed  = "generation_failed"
)

// Reply is an answer plus what produced it.
type Reply struct {
	Answer  string  `json:"answer"`
	Outcome string  `json:"outcome"`
	Result  *Result `json:"result,omitempty"`
}

// Service answers queries from the corpus through the generator.
type Service struct {
	retriever *Retriever
	generator providers.Generator
	template  string
	maxTokens int
	metrics   *metrics.Aggregator
}

// NewService builds a Service. A nil generator makes every answer
// AnswerModelNotLoaded.
func NewService(retriever *Retriever, generator providers.Generator, cfg appconfig.GeneratorConfig) *Service {
	template := cfg.PromptTemplate
	if template == "" {
		template = appconfig.DefaultPromptTemplate
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = appconfig.Default().Generator.MaxTokens
	}
	return &Service{
		retriever: retriever,
		generator: generator,
		template:  template,
		maxTokens: maxTokens,
	}
}

// WithMetrics records request outcomes and total latency into agg.
func (s *Service) WithMetrics(agg *metrics.Aggregator) *Service {
	s.metrics = agg
	return s
}

// Retriever returns the retrieval pipeline behind s.
func (s *Service) Retriever() *Retriever {
	return s.retriever
}

// Ready reports whether a generator is configured.
func (s *Service) Ready() bool {
	return s.generator != nil
}

// Generator returns the configured generator, or nil.
func (s *Service) Generator() providers.Generator {
	return s.generator
}

// Answer returns the generated answer for query, or one of the fixed answers.
func (s *Service) Answer(ctx context.Context, query, subject string) string {
	return s.Ask(ctx, query, subject).Answer
}

// Ask runs the full pipeline. Failures are logged and folded into the reply.
func (s *Service) Ask(ctx context.Context, query, subject string) Reply {
	start := time.Now()
	requestID := logging.RequestID(ctx)
	logging.LogEvent("request=%s query=%q subject=%q", requestID, query, subject)

	reply := s.ask(ctx, requestID, query, subject)

	s.metrics.ObserveStage(metrics.StageTotal, time.Since(start), nil)
	s.metrics.ObserveRequest(reply.Outcome)
	return reply
}

func (s *Service) ask(ctx context.Context, requestID, query, subject string) Reply {
	if s.generator == nil {
		return Reply{Answer: AnswerModelNotLoaded, Outcome: OutcomeNoGenerator}
	}

	res, err := s.retriever.Retrieve(ctx, query, subject)
	if errors.Is(err, ErrNoMatch) {
		return Reply{Answer: AnswerNoMatch, Outcome: OutcomeNoMatch, Result: &res}
	}
	if err != nil {
		logging.LogEvent("request=%s retrieval failed: %v", requestID, err)
		return Reply{Answer: AnswerUnavailable, Outcome: OutcomeRetrievalFailed}
	}

	prompt := BuildPrompt(s.template, res.Context, query)
	logging.LogDebug("request=%s prompt=%q", requestID, prompt)

	answer, err := s.generator.Generate(ctx, prompt, s.maxTokens)
	if err != nil {
		logging.LogEvent("request=%s generation failed: %v", requestID, err)
		return Reply{Answer: AnswerUnavailable, Outcome: OutcomeGenerateFailed, Result: &res}
	}
	return Reply{Answer: answer, Outcome: OutcomeAnswered, Result: &res}
}
