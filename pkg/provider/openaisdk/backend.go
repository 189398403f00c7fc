package openaisdk

import (
	"context"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ChatCompleter is the chat surface of the SDK client.
type ChatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Embedder is the embedding surface of the SDK client.
type Embedder interface {
	New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

// Backend bundles the SDK services the provider calls.
type Backend struct {
	Chat       ChatCompleter
	Embeddings Embedder
}

// NewOpenAIBackend builds a Backend from an SDK client configured with the
// endpoint and key from cfg. SDK retries are disabled.
func NewOpenAIBackend(cfg Config) (Backend, *http.Client) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(httpClient),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	client := openai.NewClient(opts...)
	return Backend{
		Chat:       &client.Chat.Completions,
		Embeddings: &client.Embeddings,
	}, httpClient
}
