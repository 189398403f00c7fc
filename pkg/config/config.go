// Package config provides unified configuration for the vergleich gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (DASHSCOPE_API_KEY and the VERGLEICH_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
//
// A .env file, when present, is loaded into the process environment by the
// server binary before Load runs, so it participates in step 3.
package config

import "time"

// Environment names accepted by server.environment.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Gate policies accepted by gate.policy.
const (
	GatePolicyAuto   = "auto"
	GatePolicyReject = "reject"
	GatePolicyWarn   = "warn"
)

// DefaultDashScopeBaseURL is the DashScope OpenAI-compatible base address.
const DefaultDashScopeBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

// Config holds all configuration for the vergleich gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	AI            AIConfig            `yaml:"ai"`
	Gate          GateConfig          `yaml:"gate"`
	Logging       LoggingConfig       `yaml:"logging"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 180s
	Environment  string        `yaml:"environment"`   // "development" or "production", default: "production"
}

// Development reports whether the server runs in the development environment.
func (s ServerConfig) Development() bool {
	return s.Environment == EnvDevelopment
}

// GateConfig holds the configuration validation gate settings.
type GateConfig struct {
	Policy string `yaml:"policy"` // "auto", "reject" or "warn", default: "auto"
}

// LoggingConfig holds log level and debug category settings. The
// VERGLEICH_LOG_LEVEL and VERGLEICH_DEBUG variables take precedence.
type LoggingConfig struct {
	Level string `yaml:"level"` // default: "INFO"
	Debug string `yaml:"debug"` // comma separated debug categories
}

// MCPConfig holds settings for the MCP tool surface.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/mcp"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 180 * time.Second,
			Environment:  EnvProduction,
		},
		AI: AIConfig{
			HTTPBaseURL:    DefaultDashScopeBaseURL,
			RequestTimeout: 120 * time.Second,
		},
		Gate: GateConfig{
			Policy: GatePolicyAuto,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		MCP: MCPConfig{
			Enabled: true,
			Path:    "/mcp",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
