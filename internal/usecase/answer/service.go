// Package answer composes grounded prompts and asks the generative model.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/logger"
)

// DefaultPromptTemplate places the retrieved context before the question.
const DefaultPromptTemplate = "Context: {{.Context}}\n\nQuestion: {{.Question}}\nAnswer:"

// DefaultMaxOutputTokens bounds the generated answer length.
const DefaultMaxOutputTokens = 100

// Config holds the answer composer settings.
type Config struct {
	PromptTemplate  string
	MaxOutputTokens int
}

// promptData is the template input.
type promptData struct {
	Context  string
	Question string
}

// Service builds prompts from retrieved chunks and invokes the generator.
type Service struct {
	retriever Retriever
	generator domain.Generator
	prompt    *template.Template
	maxTokens int
	logger    *zap.Logger
}

// New creates an answer service. An unparsable template is reported as
// domain.ErrInvalidConfiguration.
func New(retriever Retriever, generator domain.Generator, cfg Config, log *zap.Logger) (*Service, error) {
	text := cfg.PromptTemplate
	if text == "" {
		text = DefaultPromptTemplate
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: prompt template: %w", domain.ErrInvalidConfiguration, err)
	}

	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		retriever: retriever,
		generator: generator,
		prompt:    tmpl,
		maxTokens: maxTokens,
		logger:    log,
	}, nil
}

// BuildContext joins hit texts in received order with single newlines.
func BuildContext(hits []domain.SearchHit) string {
	return strings.Join(domain.HitTexts(hits), "\n")
}

// BuildPrompt renders the prompt template for context and question.
func (s *Service) BuildPrompt(contextText, question string) (string, error) {
	var b strings.Builder
	if err := s.prompt.Execute(&b, promptData{Context: contextText, Question: question}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// Answer builds a prompt from hits and question and returns the generated text
// verbatim together with the context used. Empty hits give an empty context;
// the model is still called.
func (s *Service) Answer(ctx context.Context, question string, hits []domain.SearchHit) (domain.AnswerResult, error) {
	contextText := BuildContext(hits)

	prompt, err := s.BuildPrompt(contextText, question)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	start := time.Now()
	gen, err := s.generator.Generate(ctx, prompt, s.maxTokens)
	if err != nil {
		if !errors.Is(err, domain.ErrGenerationFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
		}
		return domain.AnswerResult{}, fmt.Errorf("generate answer: %w", err)
	}

	logger.FromContext(ctx, s.logger).Debug("Answer generated",
		zap.Int("hits", len(hits)),
		zap.Int("context_chars", len(contextText)),
		zap.Int("prompt_tokens", gen.PromptTokens),
		zap.Int("completion_tokens", gen.CompletionTokens),
		zap.Duration("duration", time.Since(start)),
	)

	return domain.AnswerResult{
		Question:    question,
		Answer:      gen.Text,
		ContextUsed: contextText,
		Hits:        hits,
	}, nil
}

// Ask retrieves context for question with the retriever's default top-k and answers it.
// An empty or whitespace-only question is rejected with domain.ErrInvalidRequest.
func (s *Service) Ask(ctx context.Context, question string) (domain.AnswerResult, error) {
	return s.AskTopK(ctx, question, 0)
}

// AskTopK is Ask with an explicit number of hits; topK <= 0 uses the default.
func (s *Service) AskTopK(ctx context.Context, question string, topK int) (domain.AnswerResult, error) {
	if strings.TrimSpace(question) == "" {
		return domain.AnswerResult{}, fmt.Errorf("%w: question is required", domain.ErrInvalidRequest)
	}

	hits, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return domain.AnswerResult{}, fmt.Errorf("retrieve: %w", err)
	}

	return s.Answer(ctx, question, hits)
}
