package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIBaseURL points at a local ollama server's OpenAI-compatible API.
const DefaultOpenAIBaseURL = "http://localhost:11434/v1"

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "llama3"

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	// BaseURL is the API endpoint; empty means DefaultOpenAIBaseURL.
	BaseURL string
	// APIKey is sent as the bearer token. ollama accepts any value.
	APIKey string
	// Model is the model name; empty means DefaultOpenAIModel.
	Model string
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	tracker *TokenTracker
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "ollama"
	}
	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = cfg.BaseURL
	if clientCfg.BaseURL == "" {
		clientCfg.BaseURL = DefaultOpenAIBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		tracker: NewTokenTracker(),
	}
}

// Model returns the configured model name.
func (o *OpenAIClient) Model() string {
	return o.model
}

// Tracker returns the token tracker for this client.
func (o *OpenAIClient) Tracker() *TokenTracker {
	return o.tracker
}

// Complete sends one system and one user message.
func (o *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := openai.ChatCompletionRequest{
		Model:     o.model,
		Messages:  messages,
		MaxTokens: maxTokens(req.MaxTokens),
	}
	if req.Temperature > 0 {
		chatReq.Temperature = float32(req.Temperature)
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("openai API call failed: %w", err)
	}
	o.tracker.Add(int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens))

	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Completer = (*OpenAIClient)(nil)
