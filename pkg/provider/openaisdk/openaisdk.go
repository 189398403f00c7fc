package openaisdk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/openai/openai-go"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/api"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/debug"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/observability"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/provider"
)

// Name is the provider identifier.
const Name = "sdk"

// SDKProvider implements provider.Provider by delegating to the OpenAI SDK.
type SDKProvider struct {
	cfg        Config
	backend    Backend
	httpClient *http.Client
}

// Ensure SDKProvider implements provider.Provider at compile time.
var _ provider.Provider = (*SDKProvider)(nil)

// New creates an SDKProvider backed by a real SDK client. Missing
// credentials are not a construction error; every call reports them.
func New(cfg Config) *SDKProvider {
	backend, httpClient := NewOpenAIBackend(cfg)
	return &SDKProvider{cfg: cfg, backend: backend, httpClient: httpClient}
}

// NewWithBackend creates an SDKProvider around an externally supplied
// backend.
func NewWithBackend(cfg Config, backend Backend) *SDKProvider {
	return &SDKProvider{cfg: cfg, backend: backend}
}

// Name returns the provider identifier.
func (p *SDKProvider) Name() string {
	return Name
}

// Chat sends prompt with the default system message and parameters.
func (p *SDKProvider) Chat(ctx context.Context, prompt string) (*api.ChatResult, error) {
	return p.ChatMessages(ctx, provider.DefaultMessages(prompt), provider.DefaultParameters())
}

// ChatMessages sends an explicit conversation through the SDK.
func (p *SDKProvider) ChatMessages(ctx context.Context, msgs []api.ChatMessage, params api.ChatParameters) (*api.ChatResult, error) {
	start := time.Now()
	result, model, err := p.chat(ctx, msgs, params)
	observability.RecordProviderCall(Name, "chat", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	observability.RecordTokens(Name, model, result.Usage)
	return result, nil
}

func (p *SDKProvider) chat(ctx context.Context, msgs []api.ChatMessage, params api.ChatParameters) (*api.ChatResult, string, error) {
	model, err := p.prepare()
	if err != nil {
		return nil, "", err
	}

	body, err := buildChatParams(model, msgs, params)
	if err != nil {
		return nil, model, err
	}

	debug.Log("providers", "sdk chat request", "model", model, "messages", len(msgs))

	completion, err := p.backend.Chat.New(ctx, body)
	if err != nil {
		return nil, model, mapSDKError(err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return nil, model, api.NewDecodeError("chat completion has no choices")
	}

	choice := completion.Choices[0]
	return &api.ChatResult{
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: api.Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:  int(completion.Usage.TotalTokens),
		},
		RequestID: completion.ID,
		Model:     model,
		Provider:  Name,
	}, model, nil
}

// Embed requests the embedding vector for text.
func (p *SDKProvider) Embed(ctx context.Context, text string) (api.Embedding, error) {
	start := time.Now()
	vec, err := p.embed(ctx, text)
	observability.RecordProviderCall(Name, "embed", time.Since(start), err)
	return vec, err
}

func (p *SDKProvider) embed(ctx context.Context, text string) (api.Embedding, error) {
	model, err := p.prepare()
	if err != nil {
		return nil, err
	}

	debug.Log("providers", "sdk embedding request", "model", model, "chars", len(text))

	resp, err := p.backend.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, mapSDKError(err)
	}
	if resp == nil || len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, api.NewDecodeError("could not extract embeddings: response has no embedding data")
	}

	src := resp.Data[0].Embedding
	out := make(api.Embedding, len(src))
	for i, v := range src {
		f := float32(v)
		if math.IsInf(float64(f), 0) {
			return nil, api.NewDecodeError(fmt.Sprintf("could not extract embeddings: element %d out of float32 range", i))
		}
		out[i] = f
	}
	return out, nil
}

// Close releases provider resources.
func (p *SDKProvider) Close() error {
	if p.httpClient != nil {
		p.httpClient.CloseIdleConnections()
	}
	return nil
}

// prepare checks the credential and endpoint and resolves the model.
func (p *SDKProvider) prepare() (string, error) {
	if p.cfg.APIKey == "" {
		return "", api.NewConfigurationError("API key is not configured")
	}
	if p.cfg.Endpoint == "" {
		return "", api.NewConfigurationError("endpoint is not configured")
	}
	return p.cfg.model()
}

// buildChatParams translates the conversation into SDK parameters.
func buildChatParams(model string, msgs []api.ChatMessage, params api.ChatParameters) (openai.ChatCompletionNewParams, error) {
	body := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)),
	}
	for i, m := range msgs {
		switch m.Role {
		case api.RoleSystem:
			body.Messages = append(body.Messages, openai.SystemMessage(m.Content))
		case api.RoleUser:
			body.Messages = append(body.Messages, openai.UserMessage(m.Content))
		case api.RoleAssistant:
			body.Messages = append(body.Messages, openai.AssistantMessage(m.Content))
		default:
			return body, api.NewInvalidRequestError(fmt.Sprintf("messages[%d].role", i),
				fmt.Sprintf("unsupported role %q", m.Role))
		}
	}
	if params.MaxTokens != nil {
		body.MaxTokens = openai.Int(int64(*params.MaxTokens))
	}
	if params.Temperature != nil {
		body.Temperature = openai.Float(*params.Temperature)
	}
	return body, nil
}

// mapSDKError converts SDK failures into transport errors. Status errors
// keep their HTTP status as the error code.
func mapSDKError(err error) error {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var sdkErr *openai.Error
	if errors.As(err, &sdkErr) {
		msg := sdkErr.Message
		if msg == "" {
			msg = fmt.Sprintf("sdk backend returned HTTP %d", sdkErr.StatusCode)
		}
		return api.NewTransportError(sdkErr.StatusCode, msg)
	}

	return api.NewTransportError(0, fmt.Sprintf("sdk request failed: %s", err.Error()))
}
