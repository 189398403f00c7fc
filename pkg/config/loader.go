package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, VERGLEICH_CONFIG env, ./config.yaml, /etc/vergleich/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
//
// A missing API key is not a load error; it is reported by AIConfig and
// surfaced by the validation gate.
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "loaded config file", "path", filePath)
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. VERGLEICH_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/vergleich/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check VERGLEICH_CONFIG env var.
	if envPath := os.Getenv("VERGLEICH_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/vergleich/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields.
// DASHSCOPE_API_KEY is the only variable that touches the AI section and
// only replaces the key when it is non-empty.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(APIKeyEnv); v != "" {
		cfg.AI.APIKey = v
	}

	if v := os.Getenv("VERGLEICH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VERGLEICH_ENVIRONMENT"); v != "" {
		cfg.Server.Environment = strings.ToLower(v)
	}
	if v := os.Getenv("VERGLEICH_GATE_POLICY"); v != "" {
		cfg.Gate.Policy = strings.ToLower(v)
	}
	if v := os.Getenv("VERGLEICH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VERGLEICH_DEBUG"); v != "" {
		cfg.Logging.Debug = v
	}
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// If the value field is empty and the file field is set, the file is read,
// whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// ai.api_key_file -> ai.api_key
	if cfg.AI.APIKeyFile != "" && cfg.AI.APIKey == "" {
		val, err := readSecretFile(cfg.AI.APIKeyFile)
		if err != nil {
			return fmt.Errorf("ai.api_key_file: %w", err)
		}
		cfg.AI.APIKey = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
