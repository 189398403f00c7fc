package http

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/api"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/compare"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/config"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/gate"
)

// mockProvider is a configurable provider.Provider for testing.
type mockProvider struct {
	name   string
	text   string
	vector api.Embedding
	err    error

	mu       sync.Mutex
	calls    int
	prompt   string
	messages []api.ChatMessage
	params   api.ChatParameters
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Chat(ctx context.Context, prompt string) (*api.ChatResult, error) {
	m.mu.Lock()
	m.calls++
	m.prompt = prompt
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &api.ChatResult{Text: m.text, FinishReason: "stop", Model: "test-model", Provider: m.name,
		Usage: api.Usage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5}}, nil
}

func (m *mockProvider) ChatMessages(ctx context.Context, msgs []api.ChatMessage, params api.ChatParameters) (*api.ChatResult, error) {
	m.mu.Lock()
	m.calls++
	m.messages = msgs
	m.params = params
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &api.ChatResult{Text: m.text, Provider: m.name}, nil
}

func (m *mockProvider) Embed(ctx context.Context, text string) (api.Embedding, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

func (m *mockProvider) Close() error { return nil }

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type fixture struct {
	sdk       *mockProvider
	dashscope *mockProvider
	adapter   *Adapter
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		sdk:       &mockProvider{name: "sdk", text: "sdk says hi", vector: api.Embedding{0.5, -0.25}},
		dashscope: &mockProvider{name: "dashscope", text: "dashscope says hi", vector: api.Embedding{0.125}},
	}
	f.adapter = NewAdapter(Deps{
		SDK:       f.sdk,
		DashScope: f.dashscope,
		Comparer:  compare.New(f.sdk, f.dashscope),
		AI:        config.AIConfig{Endpoint: "https://example.test/v1", APIKey: "sk-1234567890", ModelName: "qwen-plus"},
	}, cfg)
	return f
}

func defaultConfig() Config {
	cfg := DefaultConfig()
	cfg.Environ = func() []string { return nil }
	return cfg
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding body %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestBasicRoutes(t *testing.T) {
	f := newFixture(t, defaultConfig())
	h := f.adapter.Handler()

	tests := []struct {
		path string
		want string
	}{
		{"/", WelcomeMessage},
		{"/healthz", "ok"},
		{"/test/hello", `"Hello World!"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.path, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}

	if rec := do(t, h, http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestChatRoutes(t *testing.T) {
	tests := []struct {
		path       string
		wantText   string
		wantSource string
	}{
		{"/test/chat", "sdk says hi", SourceSDK},
		{"/test/chat/dashscope", "dashscope says hi", SourceDashScope},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			f := newFixture(t, defaultConfig())
			rec := do(t, f.adapter.Handler(), http.MethodPost, tt.path, `{"prompt":"hello"}`)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}

			got := decodeBody[chatResponse](t, rec)
			if got.Response != tt.wantText || got.Source != tt.wantSource {
				t.Errorf("body = %+v", got)
			}
			if got.Usage.TotalTokens != 5 {
				t.Errorf("usage = %+v", got.Usage)
			}
		})
	}
}

func TestChatRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		ct         string
		wantStatus int
		wantParam  string
	}{
		{"empty prompt", `{"prompt":"  "}`, "application/json", http.StatusBadRequest, "prompt"},
		{"invalid json", `{"prompt":`, "application/json", http.StatusBadRequest, "body"},
		{"wrong content type", `prompt=hi`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType, "content_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, defaultConfig())
			req := httptest.NewRequest(http.MethodPost, "/test/chat", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.ct)
			rec := httptest.NewRecorder()
			f.adapter.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			resp := decodeBody[api.ErrorResponse](t, rec)
			if resp.Error.Type != api.ErrorTypeInvalidRequest || resp.Error.Param != tt.wantParam {
				t.Errorf("error = %+v", resp.Error)
			}
			if f.sdk.callCount() != 0 {
				t.Error("provider should not be called for a bad request")
			}
		})
	}
}

func TestChatBodyTooLarge(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxBodySize = 32
	f := newFixture(t, cfg)

	rec := do(t, f.adapter.Handler(), http.MethodPost, "/test/chat", `{"prompt":"`+strings.Repeat("x", 100)+`"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestChatProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   api.ErrorType
	}{
		{"configuration", api.NewConfigurationError("API key is not configured"), http.StatusInternalServerError, api.ErrorTypeConfiguration},
		{"transport", api.NewTransportError(401, "invalid key"), http.StatusBadGateway, api.ErrorTypeTransport},
		{"decode", api.NewDecodeError("malformed"), http.StatusBadGateway, api.ErrorTypeDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, defaultConfig())
			f.dashscope.err = tt.err

			rec := do(t, f.adapter.Handler(), http.MethodPost, "/test/chat/dashscope", `{"prompt":"hi"}`)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeBody[api.ErrorResponse](t, rec).Error.Type; got != tt.wantType {
				t.Errorf("error type = %q, want %q", got, tt.wantType)
			}
		})
	}
}

func TestChatMessages(t *testing.T) {
	f := newFixture(t, defaultConfig())
	body := `{"provider":"dashscope","messages":[
		{"role":"system","content":"be brief"},
		{"role":"user","content":"hi"},
		{"role":"assistant","content":"hello"},
		{"role":"user","content":"again"}],
		"max_tokens":50,"temperature":0.2}`

	rec := do(t, f.adapter.Handler(), http.MethodPost, "/test/chat/messages", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	got := decodeBody[api.ChatResult](t, rec)
	if got.Provider != "dashscope" || got.Text != "dashscope says hi" {
		t.Errorf("result = %+v", got)
	}
	if len(f.dashscope.messages) != 4 || f.dashscope.messages[3].Content != "again" {
		t.Errorf("messages = %+v", f.dashscope.messages)
	}
	if p := f.dashscope.params; p.MaxTokens == nil || *p.MaxTokens != 50 || p.Temperature == nil || *p.Temperature != 0.2 {
		t.Errorf("params = %+v", p)
	}
	if f.sdk.callCount() != 0 {
		t.Error("sdk provider should not be called")
	}
}

func TestChatMessagesValidation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantParam string
	}{
		{"unknown provider", `{"provider":"azure","messages":[{"role":"user","content":"hi"}]}`, "provider"},
		{"missing provider", `{"messages":[{"role":"user","content":"hi"}]}`, "provider"},
		{"no messages", `{"provider":"sdk","messages":[]}`, "messages"},
		{"bad role", `{"provider":"sdk","messages":[{"role":"tool","content":"hi"}]}`, "messages[0].role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, defaultConfig())
			rec := do(t, f.adapter.Handler(), http.MethodPost, "/test/chat/messages", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if got := decodeBody[api.ErrorResponse](t, rec).Error.Param; got != tt.wantParam {
				t.Errorf("param = %q, want %q", got, tt.wantParam)
			}
		})
	}
}

func TestEmbeddingRoutes_NonFiniteVector(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.dashscope.vector = api.Embedding{0.5, float32(math.Inf(1))}

	rec := do(t, f.adapter.Handler(), http.MethodPost, "/test/embeddings/dashscope", `{"text":"hello"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeBody[api.ErrorResponse](t, rec)
	if body.Error == nil || body.Error.Type != api.ErrorTypeServerError {
		t.Errorf("error = %+v, want a server_error", body.Error)
	}
}

func TestEmbeddingRoutes(t *testing.T) {
	f := newFixture(t, defaultConfig())
	h := f.adapter.Handler()

	rec := do(t, h, http.MethodPost, "/test/embeddings", `{"text":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	vec := decodeBody[map[string][]float32](t, rec)["embeddings"]
	if len(vec) != 2 || vec[0] != 0.5 {
		t.Errorf("embeddings = %v", vec)
	}

	rec = do(t, h, http.MethodPost, "/test/embeddings?format=string", `{"text":"hello"}`)
	if got := decodeBody[map[string]string](t, rec)["embeddings"]; got != "0.500000,-0.250000" {
		t.Errorf("string embeddings = %q", got)
	}

	rec = do(t, h, http.MethodPost, "/test/embeddings/dashscope?format=string", `{"text":"hello"}`)
	if got := decodeBody[map[string]string](t, rec)["embeddings"]; got != "0.125000" {
		t.Errorf("dashscope string embeddings = %q", got)
	}

	rec = do(t, h, http.MethodPost, "/test/embeddings", `{"text":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty text status = %d, want 400", rec.Code)
	}
}

func TestCompareRoutes(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.sdk.err = api.NewTransportError(401, "invalid key")

	rec := do(t, f.adapter.Handler(), http.MethodPost, "/test/compare", `{"prompt":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("partial failure status = %d, want 200", rec.Code)
	}
	res := decodeBody[compare.Result](t, rec)
	if res.Outcomes["sdk"].Error == nil || res.Outcomes["sdk"].Error.Code != "401" {
		t.Errorf("sdk outcome = %+v", res.Outcomes["sdk"])
	}
	if res.Outcomes["dashscope"].Chat == nil || res.Outcomes["dashscope"].Chat.Text != "dashscope says hi" {
		t.Errorf("dashscope outcome = %+v", res.Outcomes["dashscope"])
	}

	rec = do(t, f.adapter.Handler(), http.MethodPost, "/test/compare/embeddings", `{"text":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("embedding comparison status = %d", rec.Code)
	}
	res = decodeBody[compare.Result](t, rec)
	if len(res.Outcomes["dashscope"].Embedding) != 1 {
		t.Errorf("dashscope embedding outcome = %+v", res.Outcomes["dashscope"])
	}
}

func TestCompareBothFail(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.sdk.err = api.NewTransportError(500, "down")
	f.dashscope.err = api.NewDecodeError("garbage")

	rec := do(t, f.adapter.Handler(), http.MethodPost, "/test/compare", `{"prompt":"hi"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	got := decodeBody[compareFailure](t, rec)
	if got.Error == nil || got.Error.Type != api.ErrorTypeComparisonFailed {
		t.Errorf("error = %+v", got.Error)
	}
	if got.Result == nil || len(got.Result.Outcomes) != 2 {
		t.Errorf("result = %+v", got.Result)
	}
}

func TestGetConfigMasksKey(t *testing.T) {
	f := newFixture(t, defaultConfig())
	rec := do(t, f.adapter.Handler(), http.MethodGet, "/api/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "sk-1234567890") {
		t.Fatal("config view leaked the API key")
	}
	view := decodeBody[config.AIConfigView](t, rec)
	if !view.HasAPIKey || view.APIKeyLength != 13 || !view.IsValid || view.ModelName != "qwen-plus" {
		t.Errorf("view = %+v", view)
	}
}

func TestConfigTestRoutes(t *testing.T) {
	f := newFixture(t, defaultConfig())
	h := f.adapter.Handler()

	rec := do(t, h, http.MethodPost, "/api/config/test-sdk", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[configTestResult](t, rec)
	if !got.Success || got.Response != "sdk says hi" {
		t.Errorf("result = %+v", got)
	}
	if f.sdk.prompt != DefaultTestPrompt {
		t.Errorf("prompt = %q, want default", f.sdk.prompt)
	}

	rec = do(t, h, http.MethodPost, "/api/config/test-dashscope", `{"prompt":"ping"}`)
	if rec.Code != http.StatusOK || f.dashscope.prompt != "ping" {
		t.Errorf("status = %d, prompt = %q", rec.Code, f.dashscope.prompt)
	}
}

func TestConfigTestInvalidConfig(t *testing.T) {
	sdk := &mockProvider{name: "sdk"}
	dash := &mockProvider{name: "dashscope"}
	a := NewAdapter(Deps{SDK: sdk, DashScope: dash, Comparer: compare.New(sdk, dash)}, defaultConfig())

	rec := do(t, a.Handler(), http.MethodPost, "/api/config/test-dashscope", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	got := decodeBody[configInvalid](t, rec)
	if len(got.Details) != 2 {
		t.Errorf("details = %v", got.Details)
	}
	if dash.callCount() != 0 {
		t.Error("provider should not be called with an invalid configuration")
	}
}

func TestEnvironmentRoute(t *testing.T) {
	cfg := defaultConfig()
	cfg.Environ = func() []string {
		return []string{
			"DASHSCOPE_API_KEY=sk-abcdefghijklmnop",
			"OTHER_KEY=short",
			"PATH=/usr/bin",
			"monkey_business=banana-split-sundae",
		}
	}

	f := newFixture(t, cfg)
	rec := do(t, f.adapter.Handler(), http.MethodGet, "/api/config/environment", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("production status = %d, want 403", rec.Code)
	}

	cfg.Development = true
	f = newFixture(t, cfg)
	rec = do(t, f.adapter.Handler(), http.MethodGet, "/api/config/environment", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("development status = %d", rec.Code)
	}

	info := decodeBody[environmentInfo](t, rec)
	if !info.APIKeyExists || info.APIKeyLength != 19 {
		t.Errorf("api key info = %+v", info)
	}
	want := map[string]string{
		"DASHSCOPE_API_KEY": "sk-abcdefg...",
		"OTHER_KEY":         "short...",
		"monkey_business":   "banana-spl...",
	}
	if len(info.KeyVariables) != len(want) {
		t.Fatalf("key variables = %v", info.KeyVariables)
	}
	for k, v := range want {
		if info.KeyVariables[k] != v {
			t.Errorf("%s = %q, want %q", k, info.KeyVariables[k], v)
		}
	}
}

// TestGateShortCircuitsProviderRoutes wires the gate in front of the
// adapter and checks that no provider is dispatched when rejecting.
func TestGateShortCircuitsProviderRoutes(t *testing.T) {
	sdk := &mockProvider{name: "sdk", text: "x"}
	dash := &mockProvider{name: "dashscope", text: "x"}
	invalid := config.AIConfig{}
	g := gate.New(invalid, gate.Options{Policy: config.GatePolicyReject})

	a := NewAdapter(Deps{SDK: sdk, DashScope: dash, Comparer: compare.New(sdk, dash), AI: invalid}, defaultConfig(), g)
	h := a.Handler()

	for _, path := range []string{"/test/chat", "/test/chat/dashscope", "/test/compare"} {
		rec := do(t, h, http.MethodPost, path, `{"prompt":"hi"}`)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s status = %d, want 500", path, rec.Code)
		}
	}
	if sdk.callCount()+dash.callCount() != 0 {
		t.Error("providers were dispatched despite rejection")
	}

	if rec := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}

	warn := gate.New(invalid, gate.Options{Policy: config.GatePolicyWarn})
	a = NewAdapter(Deps{SDK: sdk, DashScope: dash, Comparer: compare.New(sdk, dash), AI: invalid}, defaultConfig(), warn)
	if rec := do(t, a.Handler(), http.MethodPost, "/test/chat", `{"prompt":"hi"}`); rec.Code != http.StatusOK {
		t.Errorf("warn status = %d, want 200", rec.Code)
	}
	if sdk.callCount() != 1 {
		t.Errorf("sdk calls = %d, want 1", sdk.callCount())
	}
}
