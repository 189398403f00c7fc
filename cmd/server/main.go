// Command server runs the vergleich gateway: one OpenAI SDK provider and
// one direct DashScope HTTP provider behind a shared route table, a
// parallel comparator and a configuration validation gate.
//
// Configuration is read from a YAML file (see -config) with environment
// overrides:
//
//	DASHSCOPE_API_KEY      - provider API key (overrides ai.api_key when set)
//	VERGLEICH_CONFIG       - config file path
//	VERGLEICH_PORT         - listen port (default: 8080)
//	VERGLEICH_ENVIRONMENT  - "development" or "production" (default: production)
//	VERGLEICH_GATE_POLICY  - "auto", "reject" or "warn" (default: auto)
//	VERGLEICH_LOG_LEVEL    - ERROR, WARN, INFO, DEBUG or TRACE
//	VERGLEICH_DEBUG        - comma separated debug categories
//
// A .env file in the working directory is loaded first; variables already
// set in the environment are never overwritten.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/api"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/compare"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/config"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/debug"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/gate"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/observability"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/provider/dashscope"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/provider/openaisdk"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/transport"
	transporthttp "github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/transport/http"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/transport/mcp"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config.yaml")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the configuration")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := debug.Init(cfg.Logging.Debug, cfg.Logging.Level)

	if errs := cfg.AI.ValidationErrors(); len(errs) > 0 {
		logger.Warn("AI configuration incomplete", "details", errs)
	}

	// Providers never fail construction on missing credentials; each call
	// reports them instead.
	sdk := openaisdk.New(openaisdk.ConfigFromAI(cfg.AI))
	dash, err := dashscope.New(dashscope.ConfigFromAI(cfg.AI))
	if err != nil {
		return fmt.Errorf("creating dashscope provider: %w", err)
	}
	providers := transport.NewProviderSet(sdk, dash)
	defer providers.Close()

	comparer := compare.New(sdk, dash)

	bypass := append([]string(nil), gate.DefaultBypassEndpoints...)
	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithDevelopment(cfg.Server.Development()),
		transporthttp.WithLogger(logger),
	}

	if cfg.Observability.Metrics.Enabled {
		opts = append(opts,
			transporthttp.WithMiddleware(observability.MetricsMiddleware),
			transporthttp.WithMount("GET "+cfg.Observability.Metrics.Path, observability.Handler()),
		)
		bypass = append(bypass, cfg.Observability.Metrics.Path)
	}

	opts = append(opts, transporthttp.WithMiddleware(gate.New(cfg.AI, gate.Options{
		Policy:      cfg.Gate.Policy,
		Environment: cfg.Server.Environment,
		Logger:      logger,
		Bypass:      bypass,
	})))

	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer(providers, comparer, mcp.Options{
			DefaultProvider: openaisdk.Name,
			Validation:      api.DefaultValidationConfig(),
		})
		opts = append(opts, transporthttp.WithMount(cfg.MCP.Path, mcpServer.Handler()))
	}

	srv := transporthttp.NewServer(transporthttp.Deps{
		SDK:       sdk,
		DashScope: dash,
		Comparer:  comparer,
		AI:        cfg.AI,
	}, opts...)

	logger.Info("gateway configured",
		"port", cfg.Server.Port,
		"environment", cfg.Server.Environment,
		"gate_policy", gate.EffectivePolicy(cfg.Gate.Policy, cfg.Server.Environment),
		"endpoint", cfg.AI.Endpoint,
		"dashscope_base_url", cfg.AI.HTTPBaseURL,
		"mcp", cfg.MCP.Enabled,
		"debug", debug.Categories(),
	)

	return srv.ListenAndServe()
}
