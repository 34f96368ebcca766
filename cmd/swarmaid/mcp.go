package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/swarmaid/swarmaid/internal/gateway"
	"github.com/swarmaid/swarmaid/internal/gateway/mcpserver"
)

var (
	mcpTransport string
	mcpAddr      string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the simulation and its tools over the Model Context Protocol",
	Long: `Start an MCP server that offers the simulate, hazard_scan, plan_route
and geocode tools to MCP clients.

Examples:
  swarmaid mcp                                  # stdio, for desktop clients
  swarmaid mcp --transport http --addr :8082    # streamable HTTP`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "", "transport: stdio or http (default from config)")
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", "", "HTTP listen address when --transport=http")
}

func runMCP(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if mcpTransport != "" {
		cfg.MCP.Transport = mcpTransport
	}
	if mcpAddr != "" {
		cfg.MCP.ListenAddr = mcpAddr
	}
	// stdout carries the protocol on stdio; the logger writes to stderr.
	logger := newLogger(cfg)

	sc, err := initShared(cfg, logger)
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := mcpserver.New(mcpserver.Config{
		Version:   version,
		Transport: cfg.MCP.TransportName(),
		Addr:      cfg.MCP.Addr(),
		Endpoint:  cfg.MCP.EndpointPath(),
		Metrics:   sc.Obs.MetricsOrNil(),
		Tracer:    sc.Obs.TracerOrNil().Tracer(),
	}, mcpserver.Deps{
		Simulator:  sc.Pipeline,
		Geocoder:   sc.Geocoder,
		HazardScan: sc.Tools.Get("EONET Hazard Scan"),
		RoutePlan:  sc.Tools.Get("Route Planner"),
	}, logger)

	logger.Info("starting mcp server",
		slog.String("transport", cfg.MCP.TransportName()),
		slog.String("addr", cfg.MCP.Addr()),
	)
	return gateway.Serve(ctx, []gateway.Gateway{srv}, gateway.DefaultGracePeriod, logger)
}
