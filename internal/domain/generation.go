package domain

import "context"

// Generator produces text from a prompt. Tokenization and decoding live
// behind the implementation.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (GenerationResult, error)
}

// GenerationResult carries generated text and token usage.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}
