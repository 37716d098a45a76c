package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultOllamaModel = "gemma3:4b"
	defaultMaxTokens   = 1024
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint,
// including Ollama's /v1 API.
type OpenAIClient struct {
	client       *openai.Client
	name         string
	defaultModel string
}

// NewOpenAIClient creates a client for the OpenAI API. baseURL may be empty.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrAPIKeyRequired)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIClient{
		client:       openai.NewClientWithConfig(cfg),
		name:         string(ProviderOpenAI),
		defaultModel: defaultOpenAIModel,
	}, nil
}

// NewOllamaClient creates a client for a local Ollama server.
func NewOllamaClient(baseURL string) *OpenAIClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}

	// Ollama ignores the key but the SDK requires one.
	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = baseURL

	return &OpenAIClient{
		client:       openai.NewClientWithConfig(cfg),
		name:         string(ProviderOllama),
		defaultModel: defaultOllamaModel,
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Models returns available models.
func (c *OpenAIClient) Models() []string {
	if c.name == string(ProviderOllama) {
		return []string{
			"gemma3:4b",
			"llama3.2:3b",
			"qwen2.5:7b",
		}
	}
	return []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
	}
}

// Complete sends a completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	// Convert messages to OpenAI format
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", c.name, err)
	}

	var content, stopReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		stopReason = string(resp.Choices[0].FinishReason)
	}

	return &CompletionResponse{
		Content:    content,
		Model:      resp.Model,
		TokensIn:   resp.Usage.PromptTokens,
		TokensOut:  resp.Usage.CompletionTokens,
		StopReason: stopReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}
