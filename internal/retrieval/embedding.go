package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultOllamaEmbeddingModel is the Ollama model used when none is set.
	DefaultOllamaEmbeddingModel = "all-minilm"

	// DefaultOpenAIEmbeddingModel is the OpenAI model used when none is set.
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
)

// ErrEmptyEmbedding is returned when the provider answers without a vector.
var ErrEmptyEmbedding = errors.New("embedding response contained no vector")

// EmbeddingOptions selects the embedding provider.
type EmbeddingOptions struct {
	Provider      string
	Model         string
	OllamaBaseURL string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

// NewEmbeddingFunc returns the chromem embedding function for opts.
func NewEmbeddingFunc(opts EmbeddingOptions) (chromem.EmbeddingFunc, error) {
	switch opts.Provider {
	case "ollama", "":
		model := opts.Model
		if model == "" {
			model = DefaultOllamaEmbeddingModel
		}
		return chromem.NewEmbeddingFuncOllama(model, ollamaAPIBase(opts.OllamaBaseURL)), nil
	case "openai":
		if opts.OpenAIAPIKey == "" {
			return nil, errors.New("openai embeddings: API key is required")
		}
		cfg := openai.DefaultConfig(opts.OpenAIAPIKey)
		if opts.OpenAIBaseURL != "" {
			cfg.BaseURL = opts.OpenAIBaseURL
		}
		return NewOpenAIEmbeddingFunc(openai.NewClientWithConfig(cfg), opts.Model), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
}

// NewOpenAIEmbeddingFunc embeds text through the OpenAI embeddings endpoint.
func NewOpenAIEmbeddingFunc(client *openai.Client, model string) chromem.EmbeddingFunc {
	if model == "" {
		model = DefaultOpenAIEmbeddingModel
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(model),
		})
		if err != nil {
			return nil, fmt.Errorf("create embedding: %w", err)
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return nil, ErrEmptyEmbedding
		}
		return resp.Data[0].Embedding, nil
	}
}

// ollamaAPIBase maps the OpenAI-compatible Ollama URL used for completions
// onto the native API root chromem talks to.
func ollamaAPIBase(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	base := strings.TrimSuffix(baseURL, "/")
	base = strings.TrimSuffix(base, "/v1")
	if strings.HasSuffix(base, "/api") {
		return base
	}
	return base + "/api"
}
