package config

import (
	"time"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/api"
)

// APIKeyEnv is the environment variable that supplies the provider API key.
const APIKeyEnv = "DASHSCOPE_API_KEY"

// Validation messages reported by AIConfig.ValidationErrors.
const (
	MsgAPIKeyMissing   = "API key is not configured; set the " + APIKeyEnv + " environment variable"
	MsgEndpointMissing = "endpoint URL is not configured"
)

// AIConfig holds the connection settings shared by both providers. It is
// built once at startup and treated as read-only afterwards.
type AIConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	APIKeyFile     string `yaml:"api_key_file"` // _file variant for api_key
	DeploymentName string `yaml:"deployment_name"`
	ModelName      string `yaml:"model_name"`

	// HTTPBaseURL is the base address used by the DashScope HTTP provider.
	HTTPBaseURL string `yaml:"http_base_url"` // default: DashScope compatible-mode

	// RequestTimeout bounds every outbound provider call.
	RequestTimeout time.Duration `yaml:"request_timeout"` // default: 120s
}

// IsValid reports whether the configuration carries an API key. An empty
// endpoint is reported by ValidationErrors but does not make the
// configuration invalid.
func (c AIConfig) IsValid() bool {
	return c.APIKey != ""
}

// ValidationErrors returns one message per failed precondition. Each check is
// evaluated independently; a valid configuration may still report a missing
// endpoint.
func (c AIConfig) ValidationErrors() []string {
	var errs []string
	if c.APIKey == "" {
		errs = append(errs, MsgAPIKeyMissing)
	}
	if c.Endpoint == "" {
		errs = append(errs, MsgEndpointMissing)
	}
	return errs
}

// ResolveModel returns the model identifier used by the SDK provider: the
// deployment name when set, otherwise the model name.
func (c AIConfig) ResolveModel() (string, error) {
	switch {
	case c.DeploymentName != "":
		return c.DeploymentName, nil
	case c.ModelName != "":
		return c.ModelName, nil
	}
	return "", api.NewConfigurationError("neither deployment name nor model name configured")
}

// AIConfigView is the masked representation of AIConfig exposed by the
// configuration endpoint. It never contains the key itself.
type AIConfigView struct {
	Endpoint         string   `json:"endpoint"`
	DeploymentName   string   `json:"deployment_name"`
	ModelName        string   `json:"model_name"`
	HasAPIKey        bool     `json:"has_api_key"`
	APIKeyLength     int      `json:"api_key_length"`
	IsValid          bool     `json:"is_valid"`
	ValidationErrors []string `json:"validation_errors"`
}

// View returns the masked view of the configuration.
func (c AIConfig) View() AIConfigView {
	errs := c.ValidationErrors()
	if errs == nil {
		errs = []string{}
	}
	return AIConfigView{
		Endpoint:         c.Endpoint,
		DeploymentName:   c.DeploymentName,
		ModelName:        c.ModelName,
		HasAPIKey:        c.APIKey != "",
		APIKeyLength:     len(c.APIKey),
		IsValid:          c.IsValid(),
		ValidationErrors: errs,
	}
}
