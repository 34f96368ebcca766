package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/swarmaid/swarmaid/internal/agent"
	"github.com/swarmaid/swarmaid/internal/config"
	"github.com/swarmaid/swarmaid/internal/geo"
	"github.com/swarmaid/swarmaid/internal/hazard"
	"github.com/swarmaid/swarmaid/internal/llm"
	"github.com/swarmaid/swarmaid/internal/llm/anthropic"
	"github.com/swarmaid/swarmaid/internal/llm/gemini"
	"github.com/swarmaid/swarmaid/internal/llm/openai"
	"github.com/swarmaid/swarmaid/internal/observability"
	"github.com/swarmaid/swarmaid/internal/orchestrator"
	"github.com/swarmaid/swarmaid/internal/routing"
	"github.com/swarmaid/swarmaid/internal/scheduler"
	"github.com/swarmaid/swarmaid/internal/secrets"
	"github.com/swarmaid/swarmaid/internal/social"
	"github.com/swarmaid/swarmaid/internal/tools"
	"github.com/swarmaid/swarmaid/internal/tools/audit"
	"github.com/swarmaid/swarmaid/internal/tools/hazardscan"
	"github.com/swarmaid/swarmaid/internal/tools/routeplan"
	"github.com/swarmaid/swarmaid/internal/tools/tweets"
)

// hazardRefreshJob is the scheduler job that keeps the EONET snapshot warm.
const hazardRefreshJob = "hazard-feed-refresh"

// SharedComponents holds every subsystem the serve, simulate and mcp
// commands need. Built once by initShared, torn down by Cleanup.
type SharedComponents struct {
	Config *config.Config
	Logger *slog.Logger
	Obs    *observability.Observability

	Geocoder  geo.Geocoder
	Hazards   *hazard.Feed
	Planner   *routing.Planner
	Tools     *tools.Registry
	Agents    map[string]*agent.Agent
	Pipeline  *orchestrator.Pipeline
	Scheduler *scheduler.Scheduler

	cleanups []func()
}

// Cleanup runs all deferred cleanup functions in reverse order.
func (sc *SharedComponents) Cleanup() {
	for i := len(sc.cleanups) - 1; i >= 0; i-- {
		sc.cleanups[i]()
	}
}

func (sc *SharedComponents) addCleanup(fn func()) {
	sc.cleanups = append(sc.cleanups, fn)
}

// newLogger builds the process logger: JSON to stderr at the configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Logging.SlogLevel(),
	}))
}

// initShared wires clients, tools, agents and the pipeline from config.
// Callers must call sc.Cleanup() when done.
func initShared(cfg *config.Config, logger *slog.Logger) (*SharedComponents, error) {
	if err := resolveCredentials(cfg, logger); err != nil {
		return nil, err
	}

	sc := &SharedComponents{
		Config: cfg,
		Logger: logger,
		Agents: make(map[string]*agent.Agent),
	}

	// Observability.
	obs, err := observability.New(cfg.Observability, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing observability: %w", err)
	}
	sc.Obs = obs
	sc.addCleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		obs.Shutdown(shutdownCtx)
	})
	logger.Debug("observability initialized",
		slog.Bool("metrics", obs.Metrics != nil),
		slog.Bool("tracing", obs.Tracer != nil),
	)

	// Geocoder, memoized.
	nominatimOpts := []geo.NominatimOption{
		geo.WithTimeout(cfg.Geocoder.Timeout()),
		geo.WithRetry(cfg.Geocoder.MaxAttempts(), 600*time.Millisecond),
	}
	if cfg.Geocoder.BaseURL != "" {
		nominatimOpts = append(nominatimOpts, geo.WithBaseURL(cfg.Geocoder.BaseURL))
	}
	if cfg.Geocoder.UserAgent != "" {
		nominatimOpts = append(nominatimOpts, geo.WithUserAgent(cfg.Geocoder.UserAgent))
	}
	geocoder, err := geo.NewCachedGeocoder(geo.NewNominatim(logger, nominatimOpts...), cfg.Geocoder.CacheEntries())
	if err != nil {
		return nil, err
	}
	sc.Geocoder = geocoder

	// Hazard feed.
	hazardOpts := []hazard.Option{hazard.WithTimeout(cfg.Hazards.Timeout())}
	if cfg.Hazards.BaseURL != "" {
		hazardOpts = append(hazardOpts, hazard.WithBaseURL(cfg.Hazards.BaseURL))
	}
	sc.Hazards = hazard.NewFeed(hazard.NewClient(logger, hazardOpts...), cfg.Hazards.MaxAge(), logger)

	// Social search. No token means the tweet tool uses its sample posts.
	var searcher social.Searcher
	if cfg.Social.BearerToken != "" {
		socialOpts := []social.Option{social.WithTimeout(cfg.Social.Timeout())}
		if cfg.Social.BaseURL != "" {
			socialOpts = append(socialOpts, social.WithBaseURL(cfg.Social.BaseURL))
		}
		searcher = social.NewClient(cfg.Social.BearerToken, logger, socialOpts...)
	}

	// Routing engines, ORS first when a key is configured.
	sc.Planner = routing.NewPlanner(logger, routingEngines(cfg)...)
	logger.Debug("routing planner initialized", slog.Any("engines", sc.Planner.Engines()))

	// Tools, instrumented.
	metrics, tracer := obs.MetricsOrNil(), obs.TracerOrNil()
	instrument := func(t tools.Tool) tools.Tool {
		return observability.NewInstrumentedTool(t, metrics, tracer)
	}
	sc.Tools = tools.NewRegistry(
		instrument(hazardscan.NewTool(geocoder, sc.Hazards, hazardscan.Config{
			RadiusKm:  cfg.Hazards.Radius(),
			MaxEvents: cfg.Hazards.MaxEvents(),
		}, logger)),
		instrument(tweets.NewTool(searcher, logger)),
		instrument(routeplan.NewTool(geocoder, sc.Planner, logger)),
		instrument(audit.NewTool()),
	)

	// Agents.
	providers := newProviderSet(cfg, metrics, tracer, logger)
	cache := agent.NewToolCache(cfg.Pipeline.ToolCacheTTL())
	bindings := map[string]string{
		agent.DataAnalyst:      "EONET Hazard Scan",
		agent.MedicCoordinator: "Tweet Analyzer",
		agent.LogisticsManager: "Route Planner",
		agent.Critic:           "Plan Auditor",
	}
	for _, name := range []string{agent.DataAnalyst, agent.MedicCoordinator, agent.LogisticsManager, agent.Critic} {
		provider, err := providers.forAgent(name)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
		tool := sc.Tools.Get(bindings[name])
		if tool == nil {
			return nil, fmt.Errorf("agent %s: tool %q not registered", name, bindings[name])
		}
		profile, _ := agent.ProfileFor(name)
		opts := append(profile.Options(),
			agent.WithTool(tool),
			agent.WithToolCache(cache),
			agent.WithTemperature(cfg.Agents.SamplingTemperature()),
			agent.WithMaxTokens(cfg.Agents.TokenLimit()),
			agent.WithLogger(logger.With(slog.String("agent", name))),
		)
		sc.Agents[name] = agent.New(name, provider, opts...)
		logger.Debug("agent initialized",
			slog.String("agent", name),
			slog.String("provider", provider.Name()),
			slog.String("tool", tool.Name()),
		)
	}

	// Pipeline.
	var pipelineMetrics *orchestrator.PipelineMetrics
	if metrics != nil {
		pipelineMetrics = orchestrator.NewPipelineMetrics(metrics.Registry)
	}
	sc.Pipeline = orchestrator.New(
		orchestrator.DefaultStages(
			sc.Agents[agent.DataAnalyst],
			sc.Agents[agent.MedicCoordinator],
			sc.Agents[agent.LogisticsManager],
			sc.Agents[agent.Critic],
			cfg.Pipeline.StageTimeout(),
		),
		geocoder,
		sc.Planner,
		orchestrator.WithMetrics(pipelineMetrics),
		orchestrator.WithTracer(tracer.Tracer()),
		orchestrator.WithTriageLayer(cfg.Pipeline.IncludeTriageLayer()),
		orchestrator.WithLogger(logger),
	)

	// Background jobs.
	var schedMetrics *scheduler.Metrics
	if metrics != nil {
		schedMetrics = scheduler.NewMetrics(metrics.Registry)
	}
	sc.Scheduler = scheduler.New(schedMetrics, logger)
	if spec := cfg.Hazards.RefreshSchedule; spec != "" {
		if err := sc.Scheduler.Add(scheduler.Job{
			Name:    hazardRefreshJob,
			Spec:    spec,
			Timeout: cfg.Hazards.Timeout(),
			Run:     sc.Hazards.Refresh,
		}); err != nil {
			return nil, err
		}
	}

	registerHealthChecks(sc, providers)
	logger.Info("pipeline ready",
		slog.Any("stages", sc.Pipeline.Stages()),
		slog.Any("tools", sc.Tools.List()),
		slog.Bool("triage_layer", cfg.Pipeline.IncludeTriageLayer()),
	)
	return sc, nil
}

// resolveCredentials replaces env:// and vault:// references in API key
// fields with their secret values.
func resolveCredentials(cfg *config.Config, logger *slog.Logger) error {
	resolvers := []secrets.Resolver{secrets.NewEnv()}
	if cfg.Secrets != nil && cfg.Secrets.Vault != nil {
		v := cfg.Secrets.Vault
		vault, err := secrets.NewVault(secrets.VaultConfig{
			Address:       v.Address,
			Token:         v.Token,
			Namespace:     v.Namespace,
			Timeout:       v.Timeout(),
			TLSSkipVerify: v.TLSSkipVerify,
		})
		if err != nil {
			return fmt.Errorf("initializing vault: %w", err)
		}
		resolvers = append(resolvers, vault)
	}
	chain := secrets.NewChain(resolvers...)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := chain.ResolveFields(ctx, cfg.CredentialFields()); err != nil {
		return err
	}
	logger.Debug("credentials resolved", slog.Any("schemes", chain.Schemes()))
	return nil
}

// routingEngines returns the configured engines in fallback order.
func routingEngines(cfg *config.Config) []routing.Engine {
	var engines []routing.Engine
	if cfg.Routing.ORSAPIKey != "" {
		opts := []routing.Option{routing.WithTimeout(cfg.Routing.ORSTimeout())}
		if cfg.Routing.ORSBaseURL != "" {
			opts = append(opts, routing.WithBaseURL(cfg.Routing.ORSBaseURL))
		}
		engines = append(engines, routing.NewORS(cfg.Routing.ORSAPIKey, opts...))
	}
	opts := []routing.Option{routing.WithTimeout(cfg.Routing.OSRMTimeout())}
	if cfg.Routing.OSRMBaseURL != "" {
		opts = append(opts, routing.WithBaseURL(cfg.Routing.OSRMBaseURL))
	}
	return append(engines, routing.NewOSRM(opts...))
}

// registerHealthChecks adds the readiness checks served on /readyz.
func registerHealthChecks(sc *SharedComponents, providers *providerSet) {
	hc := sc.Obs.Health
	hc.AddCheck("llm_credentials", func(context.Context) error {
		return providers.credentialsError()
	})
	if sc.Config.Hazards.RefreshSchedule != "" {
		hc.AddCheck("hazard_feed", func(context.Context) error {
			if sc.Hazards.FetchedAt().IsZero() {
				return errors.New("no EONET snapshot fetched yet")
			}
			return nil
		})
	}
}

// --- LLM providers ---

// providerSet builds each named backend once and shares it across agents.
type providerSet struct {
	cfg     *config.Config
	metrics *observability.MetricsCollector
	tracer  *observability.TracerSetup
	logger  *slog.Logger
	built   map[string]llm.Provider
}

func newProviderSet(cfg *config.Config, metrics *observability.MetricsCollector, tracer *observability.TracerSetup, logger *slog.Logger) *providerSet {
	return &providerSet{
		cfg:     cfg,
		metrics: metrics,
		tracer:  tracer,
		logger:  logger,
		built:   make(map[string]llm.Provider),
	}
}

// nameFor returns the backend an agent uses. The Critic runs on Gemini when
// a Gemini key is configured and no override says otherwise.
func (ps *providerSet) nameFor(agentName string) string {
	if name := ps.cfg.Agents.ProviderFor(agentName); name != "" {
		return name
	}
	if agentName == agent.Critic && ps.cfg.Providers.Gemini.APIKey != "" {
		return "gemini"
	}
	return ps.cfg.Providers.Default
}

func (ps *providerSet) forAgent(agentName string) (llm.Provider, error) {
	name := ps.nameFor(agentName)
	if p, ok := ps.built[name]; ok {
		return p, nil
	}
	p, err := ps.newChain(name)
	if err != nil {
		return nil, err
	}
	p = observability.NewInstrumentedProvider(p, ps.metrics, ps.tracer)
	ps.built[name] = p
	return p, nil
}

// newChain builds the named provider, followed by the configured fallbacks.
func (ps *providerSet) newChain(name string) (llm.Provider, error) {
	primary, err := buildProvider(name, ps.cfg, ps.logger)
	if err != nil {
		return nil, err
	}
	providers := []llm.Provider{primary}
	for _, fbName := range ps.cfg.Providers.Fallback {
		if fbName == name {
			continue
		}
		fb, err := buildProvider(fbName, ps.cfg, ps.logger)
		if err != nil {
			ps.logger.Warn("skipping fallback provider",
				slog.String("provider", fbName),
				slog.String("error", err.Error()),
			)
			continue
		}
		providers = append(providers, fb)
	}
	if len(providers) > 1 {
		return llm.NewFallbackProvider(providers, ps.logger), nil
	}
	return primary, nil
}

// credentialsError reports backends in use that have no API key.
func (ps *providerSet) credentialsError() error {
	var errs []error
	for name := range ps.built {
		if !hasCredentials(name, ps.cfg) {
			errs = append(errs, fmt.Errorf("provider %s has no API key", name))
		}
	}
	return errors.Join(errs...)
}

func hasCredentials(name string, cfg *config.Config) bool {
	switch name {
	case "openai":
		return cfg.Providers.OpenAI.APIKey != ""
	case "gemini":
		return cfg.Providers.Gemini.APIKey != ""
	case "anthropic":
		return cfg.Providers.Anthropic.APIKey != ""
	default:
		return true
	}
}

// buildProvider creates a single LLM provider by name.
func buildProvider(name string, cfg *config.Config, logger *slog.Logger) (llm.Provider, error) {
	switch name {
	case "openai":
		return openai.NewClient(
			cfg.Providers.OpenAI.APIKey,
			cfg.Providers.OpenAI.ModelName(),
			logger,
			openai.WithBaseURL(cfg.Providers.OpenAI.Endpoint()),
		), nil
	case "gemini":
		var opts []gemini.Option
		if cfg.Providers.Gemini.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.Providers.Gemini.BaseURL))
		}
		return gemini.NewClient(
			cfg.Providers.Gemini.APIKey,
			cfg.Providers.Gemini.ModelName(),
			logger,
			opts...,
		), nil
	case "anthropic":
		var opts []anthropic.Option
		if cfg.Providers.Anthropic.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.Providers.Anthropic.BaseURL))
		}
		return anthropic.NewClient(
			cfg.Providers.Anthropic.APIKey,
			cfg.Providers.Anthropic.Model,
			logger,
			opts...,
		), nil
	case "ollama":
		baseURL := cfg.Providers.Ollama.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		return openai.NewClient(
			"",
			cfg.Providers.Ollama.Model,
			logger,
			openai.WithBaseURL(baseURL),
			openai.WithName("ollama"),
		), nil
	default:
		return nil, fmt.Errorf("unknown provider: %q", name)
	}
}
