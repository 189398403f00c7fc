package openaisdk

import (
	"net/http"
	"time"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/config"
)

// Config holds configuration for the SDK provider.
type Config struct {
	// Endpoint is the OpenAI-compatible base URL handed to the SDK client.
	Endpoint string

	// APIKey authenticates every request.
	APIKey string

	// DeploymentName takes precedence over ModelName when naming the model.
	DeploymentName string
	ModelName      string

	// Timeout for individual HTTP requests. Defaults to 120s.
	Timeout time.Duration

	// HTTPClient overrides the client used by the SDK. Timeout is ignored
	// when set.
	HTTPClient *http.Client
}

// ConfigFromAI derives the provider configuration from the shared AI
// settings.
func ConfigFromAI(ai config.AIConfig) Config {
	return Config{
		Endpoint:       ai.Endpoint,
		APIKey:         ai.APIKey,
		DeploymentName: ai.DeploymentName,
		ModelName:      ai.ModelName,
		Timeout:        ai.RequestTimeout,
	}
}

// model resolves the target model: deployment name, then model name.
func (c Config) model() (string, error) {
	return config.AIConfig{DeploymentName: c.DeploymentName, ModelName: c.ModelName}.ResolveModel()
}
