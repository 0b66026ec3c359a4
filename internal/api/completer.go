// Package api provides the language-model clients used to generate candidates.
package api

import "context"

// DefaultMaxTokens bounds a single completion.
const DefaultMaxTokens = 8192

// CompletionRequest is a single-turn chat request.
type CompletionRequest struct {
	// System is the system prompt.
	System string
	// Prompt is the user message.
	Prompt string
	// Temperature controls sampling; zero leaves the provider default.
	Temperature float64
	// MaxTokens bounds the reply; zero means DefaultMaxTokens.
	MaxTokens int
}

// Completer sends one prompt and returns the model's text reply.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Model returns the model name used for completions.
	Model() string
}

func maxTokens(n int) int {
	if n <= 0 {
		return DefaultMaxTokens
	}
	return n
}
