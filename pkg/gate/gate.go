// Package gate provides HTTP middleware that checks the AI configuration
// before a request reaches a provider-backed handler.
//
// Under the reject policy an invalid configuration short-circuits the
// request with a 500 and the list of validation failures. Under the warn
// policy the failures are logged and the request proceeds. The auto policy
// rejects in development and warns in production.
package gate

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/config"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/debug"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/observability"
)

// RejectionMessage is the top-level error string of a rejection body.
const RejectionMessage = "AI configuration invalid"

// DefaultBypassEndpoints lists endpoints that skip the gate.
var DefaultBypassEndpoints = []string{"/healthz", "/metrics"}

// Options controls gate behaviour.
type Options struct {
	// Policy is one of config.GatePolicyAuto, GatePolicyReject or
	// GatePolicyWarn. Empty means auto.
	Policy string

	// Environment resolves the auto policy.
	Environment string

	// Logger receives validation failures. Defaults to slog.Default().
	Logger *slog.Logger

	// Now supplies the rejection timestamp. Defaults to time.Now.
	Now func() time.Time

	// Bypass lists request paths that skip the gate. Nil means
	// DefaultBypassEndpoints.
	Bypass []string
}

// Rejection is the JSON body written when a request is rejected.
type Rejection struct {
	Error     string   `json:"error"`
	Details   []string `json:"details"`
	Timestamp string   `json:"timestamp"`
}

// EffectivePolicy resolves the auto policy against the environment and
// returns either config.GatePolicyReject or config.GatePolicyWarn.
func EffectivePolicy(policy, environment string) string {
	switch policy {
	case config.GatePolicyReject, config.GatePolicyWarn:
		return policy
	}
	if environment == config.EnvDevelopment {
		return config.GatePolicyReject
	}
	return config.GatePolicyWarn
}

// New returns middleware enforcing ai according to opts. Any validation
// error (missing key or missing endpoint) counts as invalid. The
// configuration is evaluated once since it is never mutated after startup.
func New(ai config.AIConfig, opts Options) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	bypassList := opts.Bypass
	if bypassList == nil {
		bypassList = DefaultBypassEndpoints
	}
	bypass := make(map[string]bool, len(bypassList))
	for _, ep := range bypassList {
		bypass[ep] = true
	}

	policy := EffectivePolicy(opts.Policy, opts.Environment)
	details := ai.ValidationErrors()
	valid := len(details) == 0

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			if valid {
				debug.Log("gate", "AI configuration valid", "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			if policy == config.GatePolicyWarn {
				logger.Error("AI configuration invalid, continuing",
					"path", r.URL.Path,
					"details", details,
				)
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("AI configuration invalid, rejecting request",
				"path", r.URL.Path,
				"details", details,
			)
			observability.GateRejectionsTotal.WithLabelValues(policy).Inc()

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(Rejection{
				Error:     RejectionMessage,
				Details:   details,
				Timestamp: now().UTC().Format(time.RFC3339),
			})
		})
	}
}
