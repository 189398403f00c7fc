package dashscope

import (
	"net/http"
	"time"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/config"
)

// DefaultBaseURL is the DashScope compatible-mode base address.
const DefaultBaseURL = config.DefaultDashScopeBaseURL

// Config holds configuration for the DashScope HTTP provider.
type Config struct {
	// BaseURL is the API base address. Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is sent as a Bearer token on every request.
	APIKey string

	// ModelName selects the wire model. Empty selects the per-operation
	// default (DefaultChatModel, DefaultEmbeddingModel).
	ModelName string

	// DeploymentName only participates in the model selector check: a call
	// fails when both it and ModelName are empty.
	DeploymentName string

	// Timeout for individual HTTP requests. Defaults to 120s.
	Timeout time.Duration

	// Transport is the base round tripper. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// ConfigFromAI derives the provider configuration from the shared AI
// settings.
func ConfigFromAI(ai config.AIConfig) Config {
	return Config{
		BaseURL:        ai.HTTPBaseURL,
		APIKey:         ai.APIKey,
		ModelName:      ai.ModelName,
		DeploymentName: ai.DeploymentName,
		Timeout:        ai.RequestTimeout,
	}
}
