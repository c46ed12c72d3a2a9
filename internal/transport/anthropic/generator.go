package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/metrics"
)

const provider = "anthropic"

// Generator produces answers through the Anthropic Messages API.
type Generator struct {
	client      anthropic.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// Config holds the Anthropic generator settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxRetries  int
	Logger      *zap.Logger
}

// NewGenerator creates an Anthropic generator.
func NewGenerator(cfg *Config) *Generator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string, maxTokens int) (domain.GenerationResult, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if g.temperature > 0 {
		params.Temperature = anthropic.Float(float64(g.temperature))
	}

	start := time.Now()
	resp, err := g.client.Messages.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(provider, g.model, "error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("messages API call: %w: %w", err, domain.ErrGenerationFailed)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	metrics.GenerationRequestsTotal.WithLabelValues(provider, g.model, "success").Inc()
	metrics.GenerationDuration.WithLabelValues(provider, g.model).Observe(duration.Seconds())
	metrics.GenerationTokensTotal.WithLabelValues(provider, g.model, "prompt").Add(float64(resp.Usage.InputTokens))
	metrics.GenerationTokensTotal.WithLabelValues(provider, g.model, "completion").Add(float64(resp.Usage.OutputTokens))

	g.logger.Debug("Message completed",
		zap.String("stop_reason", string(resp.StopReason)),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("duration", duration),
	)

	return domain.GenerationResult{
		Text:             text.String(),
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// HealthCheck verifies API availability by listing models.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
