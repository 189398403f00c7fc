package gate

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/config"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/observability"
)

var fixedNow = func() time.Time {
	return time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
}

func invalidConfig() config.AIConfig {
	return config.AIConfig{Endpoint: "", DeploymentName: "gpt-4o"}
}

func validConfig() config.AIConfig {
	return config.AIConfig{Endpoint: "https://example.test/v1", APIKey: "sk-test"}
}

// serve runs one request through the gate and reports whether the next
// handler was reached.
func serve(t *testing.T, ai config.AIConfig, opts Options, path string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	rec := httptest.NewRecorder()
	New(ai, opts)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
	return rec, called
}

func TestGate_RejectInvalid(t *testing.T) {
	rec, called := serve(t, invalidConfig(), Options{Policy: config.GatePolicyReject}, "/test/chat")

	if called {
		t.Fatal("next handler must not be called when rejecting")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body Rejection
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Error != RejectionMessage {
		t.Errorf("error = %q", body.Error)
	}
	if len(body.Details) != 2 {
		t.Fatalf("details = %v, want key and endpoint messages", body.Details)
	}
	if !strings.Contains(body.Details[0], config.APIKeyEnv) {
		t.Errorf("details[0] = %q should mention %s", body.Details[0], config.APIKeyEnv)
	}
	if body.Timestamp != "2024-03-01T11:30:00Z" {
		t.Errorf("timestamp = %q, want UTC RFC3339", body.Timestamp)
	}
}

func TestGate_MissingEndpointRejects(t *testing.T) {
	ai := config.AIConfig{APIKey: "sk-test"}
	rec, called := serve(t, ai, Options{Policy: config.GatePolicyReject}, "/test/chat")
	if called {
		t.Fatal("a missing endpoint should be rejected")
	}

	var body Rejection
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.Details) != 1 || body.Details[0] != config.MsgEndpointMissing {
		t.Errorf("details = %v", body.Details)
	}
}

func TestGate_WarnInvalid(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	rec, called := serve(t, invalidConfig(), Options{Policy: config.GatePolicyWarn, Logger: logger}, "/test/chat")

	if !called {
		t.Fatal("next handler should be called under warn policy")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	out := logs.String()
	if strings.Count(out, "level=ERROR") != 1 {
		t.Errorf("expected exactly one error log, got:\n%s", out)
	}
	for _, want := range []string{config.MsgAPIKeyMissing, config.MsgEndpointMissing} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestGate_ValidPassesThrough(t *testing.T) {
	for _, policy := range []string{config.GatePolicyReject, config.GatePolicyWarn, config.GatePolicyAuto} {
		t.Run(policy, func(t *testing.T) {
			rec, called := serve(t, validConfig(), Options{Policy: policy, Environment: config.EnvDevelopment}, "/test/chat")
			if !called || rec.Code != http.StatusOK {
				t.Errorf("called = %v, status = %d", called, rec.Code)
			}
		})
	}
}

func TestGate_AutoPolicy(t *testing.T) {
	tests := []struct {
		env        string
		wantCalled bool
	}{
		{config.EnvDevelopment, false},
		{config.EnvProduction, true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run("env="+tt.env, func(t *testing.T) {
			logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
			_, called := serve(t, invalidConfig(), Options{Policy: config.GatePolicyAuto, Environment: tt.env, Logger: logger}, "/test/chat")
			if called != tt.wantCalled {
				t.Errorf("called = %v, want %v", called, tt.wantCalled)
			}
		})
	}
}

func TestGate_Bypass(t *testing.T) {
	for _, path := range DefaultBypassEndpoints {
		t.Run(path, func(t *testing.T) {
			_, called := serve(t, invalidConfig(), Options{Policy: config.GatePolicyReject}, path)
			if !called {
				t.Errorf("%s should bypass the gate", path)
			}
		})
	}

	_, called := serve(t, invalidConfig(), Options{Policy: config.GatePolicyReject, Bypass: []string{"/custom"}}, "/healthz")
	if called {
		t.Error("custom bypass list should replace the default")
	}
}

func TestEffectivePolicy(t *testing.T) {
	tests := []struct {
		policy, env, want string
	}{
		{config.GatePolicyReject, config.EnvProduction, config.GatePolicyReject},
		{config.GatePolicyWarn, config.EnvDevelopment, config.GatePolicyWarn},
		{config.GatePolicyAuto, config.EnvDevelopment, config.GatePolicyReject},
		{config.GatePolicyAuto, config.EnvProduction, config.GatePolicyWarn},
		{"", config.EnvDevelopment, config.GatePolicyReject},
	}
	for _, tt := range tests {
		if got := EffectivePolicy(tt.policy, tt.env); got != tt.want {
			t.Errorf("EffectivePolicy(%q, %q) = %q, want %q", tt.policy, tt.env, got, tt.want)
		}
	}
}

func TestGate_CountsRejections(t *testing.T) {
	before := rejections(t, config.GatePolicyReject)

	serve(t, invalidConfig(), Options{Policy: config.GatePolicyReject}, "/test/chat")
	serve(t, validConfig(), Options{Policy: config.GatePolicyReject}, "/test/chat")

	if got := rejections(t, config.GatePolicyReject); got != before+1 {
		t.Errorf("rejections = %v, want %v", got, before+1)
	}
}

func rejections(t *testing.T, policy string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := observability.GateRejectionsTotal.GetMetricWithLabelValues(policy)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
