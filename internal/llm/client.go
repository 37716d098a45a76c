// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrAPIKeyRequired is returned when a hosted provider has no API key.
var ErrAPIKeyRequired = errors.New("API key is required")

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserPrompt wraps a rendered prompt as a single user message request.
func UserPrompt(prompt string) []ChatMessage {
	return []ChatMessage{{Role: "user", Content: prompt}}
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
)

// Options selects and configures a provider.
type Options struct {
	Provider      Provider
	OpenAIAPIKey  string
	OpenAIBaseURL string
	AnthropicKey  string
	OllamaBaseURL string
}

// NewClient creates a new LLM client based on provider.
func NewClient(opts Options) (Client, error) {
	switch opts.Provider {
	case ProviderAnthropic:
		return NewAnthropicClient(opts.AnthropicKey)
	case ProviderOpenAI:
		return NewOpenAIClient(opts.OpenAIAPIKey, opts.OpenAIBaseURL)
	case ProviderOllama, "":
		return NewOllamaClient(opts.OllamaBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", opts.Provider)
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider Provider) string {
	switch provider {
	case ProviderAnthropic:
		return defaultAnthropicModel
	case ProviderOpenAI:
		return defaultOpenAIModel
	default:
		return defaultOllamaModel
	}
}
