package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	goutils "github.com/jkaninda/go-utils"

	"github.com/swarmaid/swarmaid/internal/config"
	"github.com/swarmaid/swarmaid/internal/gateway"
	"github.com/swarmaid/swarmaid/internal/gateway/httpapi"
	"github.com/swarmaid/swarmaid/internal/gateway/ws"
	"github.com/swarmaid/swarmaid/internal/ratelimit"
)

var (
	configPath string
	servePort  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (and the WebSocket stream when enabled)",
	RunE:  runServe,
}

func init() {
	// Register flags on both root and serve so that
	// `swarmaid --config path` and `swarmaid serve --config path` both work.
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&servePort, "port", "", "override HTTP listen address (e.g. :8080)")
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "path to config file")
}

// loadConfig reads the config file named by SWARMAID_CONFIG or --config.
func loadConfig() (*config.Config, error) {
	return config.Load(goutils.Env("SWARMAID_CONFIG", configPath))
}

// runServe starts the HTTP gateway and background jobs, then blocks until a
// signal arrives or a gateway fails.
func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Server.ListenAddr = servePort
	}
	logger := newLogger(cfg)
	logger.Info("starting in serve mode", slog.String("config", configPath))

	sc, err := initShared(cfg, logger)
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	// Signal-aware context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Warm the hazard feed and keep it fresh.
	if jobs := sc.Scheduler.Jobs(); len(jobs) > 0 {
		stopScheduler := sc.Scheduler.Start(ctx)
		defer stopScheduler()
		go func() {
			if err := sc.Scheduler.RunNow(ctx, hazardRefreshJob); err != nil {
				logger.Warn("initial hazard refresh failed", slog.String("error", err.Error()))
			}
		}()
		logger.Debug("scheduler started", slog.Int("jobs", len(jobs)))
	}

	gateways := []gateway.Gateway{buildHTTPGateway(cfg, sc)}
	logger.Info("gateways configured", slog.Int("count", len(gateways)))
	return gateway.Serve(ctx, gateways, gateway.DefaultGracePeriod, logger)
}

// buildHTTPGateway wires the HTTP API with rate limiting, observability and
// the optional WebSocket endpoint.
func buildHTTPGateway(cfg *config.Config, sc *SharedComponents) *httpapi.Gateway {
	metrics := sc.Obs.MetricsOrNil()
	httpCfg := httpapi.Config{
		ListenAddr:     cfg.Server.Addr(),
		EnableDocs:     cfg.Server.EnableDocs,
		AllowedOrigins: cfg.Server.AllowedOrigins(),
		MetricsPath:    sc.Obs.MetricsPath(),
		HealthChecker:  sc.Obs.Health,
		Metrics:        metrics,
		Tracer:         sc.Obs.TracerOrNil().Tracer(),
	}
	if metrics != nil {
		httpCfg.MetricsRegistry = metrics.Registry
	}

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.Server.RateLimit.RequestsPerMinute,
		BurstSize:         cfg.Server.RateLimit.BurstSize,
	})
	gw := httpapi.NewGateway(httpCfg, sc.Pipeline, limiter, sc.Logger)

	if wsCfg := cfg.Server.WebSocket; wsCfg != nil && wsCfg.Enabled {
		wsServer := ws.NewServer(sc.Pipeline, ws.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins(),
		}, sc.Logger)
		if metrics != nil {
			ws.RegisterRunMetrics(metrics.Registry, wsServer.Runs())
		}
		gw.WithHandler(wsCfg.WSPath(), wsServer.Handler())
		sc.Logger.Debug("websocket endpoint mounted", slog.String("path", wsCfg.WSPath()))
	}
	return gw
}
