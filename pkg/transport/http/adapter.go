package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/api"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/compare"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/config"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/debug"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/provider"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/transport"
)

// Response sources reported by the single-provider chat routes.
const (
	SourceSDK       = "OpenAI SDK"
	SourceDashScope = "DashScope HTTP"
)

// DefaultTestPrompt is sent by the configuration test routes when the
// request carries no prompt.
const DefaultTestPrompt = "你好"

// WelcomeMessage is served at the root path.
const WelcomeMessage = "Welcome to the vergleich gateway API!"

// Deps are the collaborators the adapter routes to.
type Deps struct {
	// SDK is the SDK-backed provider.
	SDK provider.Provider

	// DashScope is the direct HTTP provider.
	DashScope provider.Provider

	// Comparer runs both providers side by side.
	Comparer transport.Comparer

	// AI is the shared provider configuration shown by /api/config.
	AI config.AIConfig
}

// Adapter serves the gateway API over HTTP.
// It routes requests to the appropriate provider and serializes responses.
type Adapter struct {
	deps        Deps
	providers   transport.ProviderSet
	mux         *http.ServeMux
	config      Config
	middlewares []transport.Middleware
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
	Development bool
	Validation  api.ValidationConfig

	// Environ lists the process environment. Defaults to os.Environ.
	Environ func() []string
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 1 << 20, // 1 MiB
		Validation:  api.DefaultValidationConfig(),
		Environ:     os.Environ,
	}
}

// NewAdapter creates an HTTP adapter over deps. Middleware wraps every
// route in the given order; the first is the outermost.
func NewAdapter(deps Deps, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if cfg.Environ == nil {
		cfg.Environ = os.Environ
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		deps:        deps,
		providers:   transport.NewProviderSet(deps.SDK, deps.DashScope),
		mux:         http.NewServeMux(),
		config:      cfg,
		middlewares: middlewares,
	}

	a.mux.HandleFunc("GET /{$}", a.handleWelcome)
	a.mux.HandleFunc("GET /healthz", a.handleHealth)

	a.mux.HandleFunc("GET /test/hello", a.handleHello)
	a.mux.HandleFunc("POST /test/chat", a.handleChat(deps.SDK, SourceSDK))
	a.mux.HandleFunc("POST /test/chat/dashscope", a.handleChat(deps.DashScope, SourceDashScope))
	a.mux.HandleFunc("POST /test/chat/messages", a.handleChatMessages)
	a.mux.HandleFunc("POST /test/embeddings", a.handleEmbeddings(deps.SDK))
	a.mux.HandleFunc("POST /test/embeddings/dashscope", a.handleEmbeddings(deps.DashScope))
	a.mux.HandleFunc("POST /test/compare", a.handleCompareChat)
	a.mux.HandleFunc("POST /test/compare/embeddings", a.handleCompareEmbeddings)

	a.mux.HandleFunc("GET /api/config", a.handleGetConfig)
	a.mux.HandleFunc("POST /api/config/test-sdk", a.handleConfigTest(deps.SDK))
	a.mux.HandleFunc("POST /api/config/test-dashscope", a.handleConfigTest(deps.DashScope))
	a.mux.HandleFunc("GET /api/config/environment", a.handleEnvironment)

	return a
}

// Mount registers an additional handler, e.g. the metrics or MCP
// endpoint, behind the same middleware chain.
func (a *Adapter) Mount(pattern string, h http.Handler) {
	a.mux.Handle(pattern, h)
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest.
func (a *Adapter) Handler() http.Handler {
	if len(a.middlewares) == 0 {
		return a.mux
	}
	return transport.Chain(a.middlewares...)(a.mux)
}

func (a *Adapter) handleWelcome(w http.ResponseWriter, r *http.Request) {
	writeText(w, WelcomeMessage)
}

func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeText(w, "ok")
}

func (a *Adapter) handleHello(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, "Hello World!")
}

// chatResponse is the body of the single-provider chat routes.
type chatResponse struct {
	Response string    `json:"response"`
	Source   string    `json:"source"`
	Model    string    `json:"model,omitempty"`
	Usage    api.Usage `json:"usage"`
}

// handleChat handles POST /test/chat and /test/chat/dashscope.
func (a *Adapter) handleChat(p provider.Provider, source string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.PromptRequest
		if apiErr := a.decode(w, r, &req, false); apiErr != nil {
			a.writeDecodeError(w, apiErr)
			return
		}
		if apiErr := api.ValidatePrompt(&req, a.config.Validation); apiErr != nil {
			transport.WriteAPIError(w, apiErr)
			return
		}

		result, err := p.Chat(r.Context(), req.Prompt)
		if err != nil {
			a.logFailure(r, p.Name(), "chat", err)
			transport.WriteError(w, err)
			return
		}

		transport.WriteJSON(w, http.StatusOK, chatResponse{
			Response: result.Text,
			Source:   source,
			Model:    result.Model,
			Usage:    result.Usage,
		})
	}
}

// handleChatMessages handles POST /test/chat/messages.
func (a *Adapter) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	var req api.MessagesRequest
	if apiErr := a.decode(w, r, &req, false); apiErr != nil {
		a.writeDecodeError(w, apiErr)
		return
	}

	p, ok := a.providers.Lookup(req.Provider)
	if !ok {
		transport.WriteAPIError(w, api.NewInvalidRequestError("provider",
			fmt.Sprintf("provider must be one of %s", strings.Join(a.providerNames(), ", "))))
		return
	}
	if apiErr := api.ValidateMessages(&req, a.config.Validation); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	result, err := p.ChatMessages(r.Context(), req.Messages, req.Parameters())
	if err != nil {
		a.logFailure(r, p.Name(), "chat", err)
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, result)
}

// handleEmbeddings handles POST /test/embeddings and
// /test/embeddings/dashscope. With ?format=string the vector is returned
// in its comma-joined text form.
func (a *Adapter) handleEmbeddings(p provider.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.TextRequest
		if apiErr := a.decode(w, r, &req, false); apiErr != nil {
			a.writeDecodeError(w, apiErr)
			return
		}
		if apiErr := api.ValidateText(&req, a.config.Validation); apiErr != nil {
			transport.WriteAPIError(w, apiErr)
			return
		}

		vec, err := p.Embed(r.Context(), req.Text)
		if err != nil {
			a.logFailure(r, p.Name(), "embed", err)
			transport.WriteError(w, err)
			return
		}

		if r.URL.Query().Get("format") == "string" {
			transport.WriteJSON(w, http.StatusOK, map[string]string{"embeddings": provider.FormatEmbedding(vec)})
			return
		}
		transport.WriteJSON(w, http.StatusOK, map[string]api.Embedding{"embeddings": vec})
	}
}

// compareFailure is written when every provider in a comparison failed.
type compareFailure struct {
	Result *compare.Result `json:"result"`
	Error  *api.APIError   `json:"error"`
}

// handleCompareChat handles POST /test/compare.
func (a *Adapter) handleCompareChat(w http.ResponseWriter, r *http.Request) {
	var req api.PromptRequest
	if apiErr := a.decode(w, r, &req, false); apiErr != nil {
		a.writeDecodeError(w, apiErr)
		return
	}
	if apiErr := api.ValidatePrompt(&req, a.config.Validation); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	result, err := a.deps.Comparer.CompareChat(r.Context(), req.Prompt)
	writeComparison(w, result, err)
}

// handleCompareEmbeddings handles POST /test/compare/embeddings.
func (a *Adapter) handleCompareEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req api.TextRequest
	if apiErr := a.decode(w, r, &req, false); apiErr != nil {
		a.writeDecodeError(w, apiErr)
		return
	}
	if apiErr := api.ValidateText(&req, a.config.Validation); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	result, err := a.deps.Comparer.CompareEmbedding(r.Context(), req.Text)
	writeComparison(w, result, err)
}

func writeComparison(w http.ResponseWriter, result *compare.Result, err error) {
	if err == nil {
		transport.WriteJSON(w, http.StatusOK, result)
		return
	}
	apiErr := api.AsAPIError(err)
	if result == nil {
		transport.WriteAPIError(w, apiErr)
		return
	}
	transport.WriteJSON(w, transport.HTTPStatusFromError(apiErr), compareFailure{Result: result, Error: apiErr})
}

// handleGetConfig handles GET /api/config.
func (a *Adapter) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, a.deps.AI.View())
}

// configInvalid is the body of a configuration test against an invalid
// configuration.
type configInvalid struct {
	Error   string   `json:"error"`
	Details []string `json:"details"`
}

// configTestResult is the body of a successful configuration test.
type configTestResult struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

// handleConfigTest handles POST /api/config/test-sdk and
// /api/config/test-dashscope. The body is optional.
func (a *Adapter) handleConfigTest(p provider.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.PromptRequest
		if apiErr := a.decode(w, r, &req, true); apiErr != nil {
			a.writeDecodeError(w, apiErr)
			return
		}

		if !a.deps.AI.IsValid() {
			transport.WriteJSON(w, http.StatusBadRequest, configInvalid{
				Error:   "AI configuration invalid",
				Details: a.deps.AI.ValidationErrors(),
			})
			return
		}

		prompt := req.Prompt
		if strings.TrimSpace(prompt) == "" {
			prompt = DefaultTestPrompt
		}

		result, err := p.Chat(r.Context(), prompt)
		if err != nil {
			a.logFailure(r, p.Name(), "config test", err)
			transport.WriteError(w, err)
			return
		}
		transport.WriteJSON(w, http.StatusOK, configTestResult{Success: true, Response: result.Text})
	}
}

// environmentInfo is the body of GET /api/config/environment.
type environmentInfo struct {
	APIKeyExists bool              `json:"dashscope_api_key_exists"`
	APIKeyLength int               `json:"dashscope_api_key_length"`
	KeyVariables map[string]string `json:"key_variables"`
}

// handleEnvironment handles GET /api/config/environment. Only available
// in development; values of KEY-named variables are cut to 10 characters.
func (a *Adapter) handleEnvironment(w http.ResponseWriter, r *http.Request) {
	if !a.config.Development {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "this endpoint is only available in development"),
			http.StatusForbidden,
		)
		return
	}

	info := environmentInfo{KeyVariables: make(map[string]string)}
	for _, kv := range a.config.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if name == config.APIKeyEnv && value != "" {
			info.APIKeyExists = true
			info.APIKeyLength = len(value)
		}
		if strings.Contains(strings.ToUpper(name), "KEY") {
			info.KeyVariables[name] = truncateSecret(value)
		}
	}
	transport.WriteJSON(w, http.StatusOK, info)
}

// truncateSecret keeps at most the first 10 characters and always appends
// an ellipsis.
func truncateSecret(v string) string {
	if len(v) <= 10 {
		return v + "..."
	}
	return debug.Truncate(v, 10)
}

// decode reads a JSON request body into v. When optional is set an empty
// body leaves v untouched.
func (a *Adapter) decode(w http.ResponseWriter, r *http.Request, v any, optional bool) *api.APIError {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return &api.APIError{
				Type:    api.ErrorTypeInvalidRequest,
				Code:    "unsupported_media_type",
				Param:   "content_type",
				Message: "Content-Type must be application/json",
			}
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return &api.APIError{
				Type:    api.ErrorTypeInvalidRequest,
				Code:    "body_too_large",
				Param:   "body",
				Message: fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize),
			}
		}
		return api.NewInvalidRequestError("body", "invalid JSON: "+err.Error())
	}
	return nil
}

// writeDecodeError maps body decoding failures to their HTTP status.
func (a *Adapter) writeDecodeError(w http.ResponseWriter, apiErr *api.APIError) {
	switch apiErr.Code {
	case "unsupported_media_type":
		transport.WriteErrorResponse(w, apiErr, http.StatusUnsupportedMediaType)
	case "body_too_large":
		transport.WriteErrorResponse(w, apiErr, http.StatusRequestEntityTooLarge)
	default:
		transport.WriteAPIError(w, apiErr)
	}
}

func (a *Adapter) logFailure(r *http.Request, providerName, operation string, err error) {
	debug.Log("transport", "provider call failed",
		"request_id", transport.RequestIDFromContext(r.Context()),
		"provider", providerName,
		"operation", operation,
		"error", err.Error(),
	)
}

func (a *Adapter) providerNames() []string {
	names := make([]string, 0, len(a.providers))
	for name := range a.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeText(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, s)
}
