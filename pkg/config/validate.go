package config

import (
	"errors"
	"fmt"
)

// Validate checks the process-level configuration for valid values.
// Returns an error with a descriptive field path on failure. The AI section
// is reported by AIConfig.ValidationErrors instead.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// server.environment must be a known value.
	switch c.Server.Environment {
	case EnvDevelopment, EnvProduction:
		// valid
	default:
		errs = append(errs, fmt.Errorf("server.environment must be %q or %q, got %q",
			EnvDevelopment, EnvProduction, c.Server.Environment))
	}

	// gate.policy must be a known value.
	switch c.Gate.Policy {
	case GatePolicyAuto, GatePolicyReject, GatePolicyWarn:
		// valid
	default:
		errs = append(errs, fmt.Errorf("gate.policy must be %q, %q, or %q, got %q",
			GatePolicyAuto, GatePolicyReject, GatePolicyWarn, c.Gate.Policy))
	}

	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive, got %v", c.Server.ReadTimeout))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive, got %v", c.Server.WriteTimeout))
	}
	if c.AI.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ai.request_timeout must be positive, got %v", c.AI.RequestTimeout))
	}

	return errors.Join(errs...)
}
