// Package mcpserver exposes the simulation and its tools to MCP clients,
// over stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"

	"github.com/swarmaid/swarmaid/internal/geo"
	"github.com/swarmaid/swarmaid/internal/observability"
	"github.com/swarmaid/swarmaid/internal/orchestrator"
	"github.com/swarmaid/swarmaid/internal/tools"
)

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Simulator runs the full agent pipeline.
type Simulator interface {
	Run(ctx context.Context, scenario string, observe orchestrator.Observer) *orchestrator.Result
}

// Config configures the MCP server.
type Config struct {
	Name      string // Server name reported to clients. Default: "swarmaid".
	Version   string
	Transport string // "stdio" or "http".
	Addr      string // HTTP listen address.
	Endpoint  string // HTTP endpoint path. Default: "/mcp".

	Metrics *observability.MetricsCollector
	Tracer  trace.Tracer
}

// Deps are the components the MCP tools call into. Any tool may be nil, in
// which case it is not registered.
type Deps struct {
	Simulator  Simulator
	Geocoder   geo.Geocoder
	HazardScan tools.Tool
	RoutePlan  tools.Tool
}

// Server is the MCP gateway.
type Server struct {
	cfg    Config
	deps   Deps
	mcp    *server.MCPServer
	logger *slog.Logger

	mu      sync.Mutex
	httpSrv *http.Server
}

// New creates the MCP server and registers the available tools.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if cfg.Name == "" {
		cfg.Name = "swarmaid"
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "/mcp"
	} else if !strings.HasPrefix(cfg.Endpoint, "/") {
		cfg.Endpoint = "/" + cfg.Endpoint
	}

	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcp: server.NewMCPServer(
			cfg.Name,
			cfg.Version,
			server.WithToolCapabilities(false),
			server.WithLogging(),
		),
		logger: logger,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	if s.deps.Simulator != nil {
		s.mcp.AddTool(mcp.NewTool("simulate",
			mcp.WithDescription("Run the four-agent disaster response simulation (analysis, triage, routes, critique) "+
				"and return the run log with a GeoJSON map overlay."),
			mcp.WithString("scenario", mcp.Required(), mcp.Description("Free-text disaster scenario, e.g. 'Flood in Jakarta'")),
		), s.handleSimulate)
	}
	if s.deps.HazardScan != nil {
		s.mcp.AddTool(mcp.NewTool("hazard_scan",
			mcp.WithDescription(s.deps.HazardScan.Description()),
			mcp.WithString("place", mcp.Required(), mcp.Description("Place name or scenario text")),
		), s.toolHandler(s.deps.HazardScan))
	}
	if s.deps.RoutePlan != nil {
		s.mcp.AddTool(mcp.NewTool("plan_route",
			mcp.WithDescription(s.deps.RoutePlan.Description()),
			mcp.WithString("place", mcp.Required(), mcp.Description("Place name or scenario text")),
		), s.toolHandler(s.deps.RoutePlan))
	}
	if s.deps.Geocoder != nil {
		s.mcp.AddTool(mcp.NewTool("geocode",
			mcp.WithDescription("Resolve a place name to WGS84 coordinates."),
			mcp.WithString("place", mcp.Required(), mcp.Description("Place name")),
		), s.handleGeocode)
	}
}

func (s *Server) handleSimulate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scenario := strings.TrimSpace(req.GetString("scenario", ""))
	if scenario == "" {
		return mcp.NewToolResultError("scenario is required"), nil
	}
	res := s.deps.Simulator.Run(ctx, scenario, nil)
	return jsonResult(res)
}

func (s *Server) handleGeocode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	place := strings.TrimSpace(req.GetString("place", ""))
	if place == "" {
		return mcp.NewToolResultError("place is required"), nil
	}
	p, err := s.deps.Geocoder.Geocode(ctx, place)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Could not geocode %q: %v", place, err)), nil
	}
	return jsonResult(p)
}

// toolResult is the JSON shape returned for agent tools.
type toolResult struct {
	Output   string                 `json:"output"`
	GeoJSON  *geo.FeatureCollection `json:"geojson,omitempty"`
	Metadata map[string]any         `json:"metadata,omitempty"`
}

func (s *Server) toolHandler(t tools.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		place := strings.TrimSpace(req.GetString("place", ""))
		if place == "" {
			return mcp.NewToolResultError("place is required"), nil
		}
		res, err := t.Execute(ctx, place)
		if err != nil {
			s.logger.WarnContext(ctx, "mcp tool failed",
				slog.String("tool", t.Name()),
				slog.String("error", err.Error()),
			)
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", t.Name(), err)), nil
		}
		out := toolResult{Output: res.Output, Metadata: res.Metadata}
		if len(res.Features) > 0 {
			fc := geo.Collect(res.Features)
			out.GeoJSON = &fc
		}
		return jsonResult(out)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Handler returns the streamable HTTP handler wrapped in request metrics.
func (s *Server) Handler() http.Handler {
	streamable := server.NewStreamableHTTPServer(
		s.mcp,
		server.WithEndpointPath(s.cfg.Endpoint),
		server.WithStateLess(true),
	)
	return observability.HTTPMetricsMiddleware(s.cfg.Metrics, s.cfg.Tracer, streamable)
}

// Start serves the configured transport and blocks until it exits or ctx is
// canceled.
func (s *Server) Start(ctx context.Context) error {
	switch s.cfg.Transport {
	case TransportStdio:
		s.logger.Info("mcp server starting", slog.String("transport", TransportStdio))
		err := server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp stdio transport: %w", err)
		}
		return nil

	case TransportHTTP:
		mux := http.NewServeMux()
		mux.Handle(s.cfg.Endpoint, s.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("ok"))
		})

		srv := &http.Server{
			Addr:              s.cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			BaseContext:       func(_ net.Listener) context.Context { return ctx },
		}
		s.mu.Lock()
		s.httpSrv = srv
		s.mu.Unlock()

		s.logger.Info("mcp server starting",
			slog.String("transport", TransportHTTP),
			slog.String("addr", s.cfg.Addr),
			slog.String("endpoint", s.cfg.Endpoint),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mcp http transport: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unsupported mcp transport %q", s.cfg.Transport)
	}
}

// Stop shuts the HTTP transport down. Stdio stops when its context ends.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("mcp server stopping")
	return srv.Shutdown(ctx)
}
