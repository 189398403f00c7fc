package dashscope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/api"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/debug"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/observability"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/provider"
)

// Name is the provider identifier.
const Name = "dashscope"

const (
	chatPath      = "chat/completions"
	embeddingPath = "embeddings"

	// maxResponseBody bounds how much of a success body is read.
	maxResponseBody = 32 << 20
)

// DashScopeProvider implements provider.Provider against the DashScope REST
// API. A single http.Client is shared by all calls.
type DashScopeProvider struct {
	cfg    Config
	client *http.Client
}

// Ensure DashScopeProvider implements provider.Provider at compile time.
var _ provider.Provider = (*DashScopeProvider)(nil)

// New creates a new DashScopeProvider with the given configuration. Missing
// credentials are not a construction error; every call reports them instead.
// Returns an error if the base URL cannot be parsed.
func New(cfg Config) (*DashScopeProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("dashscope: invalid base URL %q: %w", cfg.BaseURL, err)
	}

	// Normalize: remove trailing slash from base URL.
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	// Apply default timeout if not set.
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &DashScopeProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newHeaderTransport(cfg.Transport, cfg.APIKey),
		},
	}, nil
}

// Name returns the provider identifier.
func (p *DashScopeProvider) Name() string {
	return Name
}

// Chat sends prompt with the default system message and parameters.
func (p *DashScopeProvider) Chat(ctx context.Context, prompt string) (*api.ChatResult, error) {
	return p.ChatMessages(ctx, provider.DefaultMessages(prompt), provider.DefaultParameters())
}

// ChatMessages sends an explicit conversation and returns the decoded result.
func (p *DashScopeProvider) ChatMessages(ctx context.Context, msgs []api.ChatMessage, params api.ChatParameters) (*api.ChatResult, error) {
	start := time.Now()
	model := ChatModel(p.cfg.ModelName)

	result, err := p.chat(ctx, BuildChatRequest(model, msgs, params))
	observability.RecordProviderCall(Name, "chat", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	result.Model = model
	result.Provider = Name
	observability.RecordTokens(Name, model, result.Usage)
	return result, nil
}

func (p *DashScopeProvider) chat(ctx context.Context, req ChatRequest) (*api.ChatResult, error) {
	resp, err := p.RawChat(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.toResult()
}

// RawChat sends a prebuilt chat request and returns the undecorated wire
// response.
func (p *DashScopeProvider) RawChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := p.checkConfig(); err != nil {
		return nil, err
	}

	data, err := p.post(ctx, chatPath, req)
	if err != nil {
		return nil, err
	}

	return decodeChatResponse(data)
}

// Embed requests the embedding vector for text.
func (p *DashScopeProvider) Embed(ctx context.Context, text string) (api.Embedding, error) {
	start := time.Now()
	vec, err := p.embed(ctx, text)
	observability.RecordProviderCall(Name, "embed", time.Since(start), err)
	return vec, err
}

func (p *DashScopeProvider) embed(ctx context.Context, text string) (api.Embedding, error) {
	if err := p.checkConfig(); err != nil {
		return nil, err
	}

	req := BuildEmbeddingRequest(EmbeddingModel(p.cfg.ModelName), text)
	data, err := p.post(ctx, embeddingPath, req)
	if err != nil {
		return nil, err
	}
	return ExtractEmbedding(data)
}

// Close releases provider resources.
func (p *DashScopeProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// checkConfig fails the call when the credential or the model selector is
// missing.
func (p *DashScopeProvider) checkConfig() error {
	if p.cfg.APIKey == "" {
		return api.NewConfigurationError("API key is not configured")
	}
	if p.cfg.ModelName == "" && p.cfg.DeploymentName == "" {
		return api.NewConfigurationError("neither deployment name nor model name configured")
	}
	return nil
}

// post marshals body, sends it to path and returns the success body. Any
// non-2xx status is mapped to a transport error before the body is decoded.
func (p *DashScopeProvider) post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	endpoint := p.cfg.BaseURL + "/" + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	debug.Log("providers", "dashscope request", "method", http.MethodPost, "url", endpoint, "bytes", len(payload))
	debug.Raw("providers", string(payload))

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(err)
	}
	defer httpResp.Body.Close()

	debug.Log("providers", "dashscope response", "url", endpoint, "status", httpResp.StatusCode)

	// Check for error status codes.
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, mapHTTPError(httpResp)
	}

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, mapNetworkError(err)
	}
	debug.Raw("providers", string(data))
	return data, nil
}
