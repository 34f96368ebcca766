// Package httpapi implements the HTTP gateway the map frontend talks to.
//
// Routes:
//   - GET /                 liveness banner
//   - GET /simulate         full multi-agent run, JSON
//   - GET /simulate/stream  same run as server-sent events
//   - GET /analyze          Data Analyst only
//   - GET /healthz, /readyz health and readiness
//   - GET /metrics          Prometheus exposition (when enabled)
//
// There is no authentication. Clients are rate limited per remote address.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jkaninda/okapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/trace"

	"github.com/swarmaid/swarmaid/internal/agent"
	"github.com/swarmaid/swarmaid/internal/observability"
	"github.com/swarmaid/swarmaid/internal/orchestrator"
	"github.com/swarmaid/swarmaid/internal/ratelimit"
)

const defaultMaxRequestSize = 1 << 20 // 1 MB

// DefaultAnalyzeScenario is used by /analyze when no scenario is given.
const DefaultAnalyzeScenario = "Tokyo earthquake"

// RequestIDHeader carries a caller-chosen run ID.
const RequestIDHeader = "X-Request-ID"

// ErrorBody is the standard error response used in OpenAPI documentation.
type ErrorBody struct {
	Error string `json:"error"`
}

// Simulator runs the agent pipeline. *orchestrator.Pipeline implements it.
type Simulator interface {
	Run(ctx context.Context, scenario string, observe orchestrator.Observer) *orchestrator.Result
	RunStage(ctx context.Context, name, scenario string) (string, error)
}

var _ Simulator = (*orchestrator.Pipeline)(nil)

// Config configures the HTTP API gateway.
type Config struct {
	ListenAddr     string // e.g., ":8000"
	EnableDocs     bool
	AllowedOrigins []string // CORS origins. Empty = CORS middleware not installed.

	// Observability
	MetricsRegistry *prometheus.Registry            // Custom Prometheus registry for /metrics.
	MetricsPath     string                          // Path for metrics endpoint. Default: "/metrics".
	HealthChecker   *observability.HealthChecker    // Health checker for /readyz.
	Metrics         *observability.MetricsCollector // Metrics collector for HTTP middleware.
	Tracer          trace.Tracer                    // OTel tracer for HTTP middleware.
}

// Gateway is the HTTP API gateway.
type Gateway struct {
	config    Config
	simulator Simulator
	limiter   *ratelimit.Limiter
	logger    *slog.Logger

	mu     sync.Mutex
	server *http.Server

	// Extra handlers mounted on the HTTP mux (e.g., the WebSocket endpoint).
	extraRoutes []extraRoute

	okapi *okapi.Okapi
}

// extraRoute stores an additional handler to be mounted on the HTTP mux.
type extraRoute struct {
	pattern string
	handler http.Handler
}

// NewGateway creates an HTTP API gateway. rl may be nil for no rate limiting.
func NewGateway(cfg Config, sim Simulator, rl *ratelimit.Limiter, logger *slog.Logger) *Gateway {
	g := &Gateway{
		config:    cfg,
		simulator: sim,
		limiter:   rl,
		logger:    logger,
		okapi:     okapi.New(okapi.WithMaxMultipartMemory(defaultMaxRequestSize)),
	}
	if cfg.EnableDocs {
		g.okapi.WithOpenAPIDocs(okapi.OpenAPI{
			Title:   "swarmaid",
			Version: "v0.1.0",
		})
	}
	return g
}

// WithHandler mounts an additional handler on the HTTP mux at the given pattern.
func (g *Gateway) WithHandler(pattern string, handler http.Handler) *Gateway {
	g.extraRoutes = append(g.extraRoutes, extraRoute{pattern: pattern, handler: handler})
	return g
}

// routes registers every handler on the okapi instance.
func (g *Gateway) routes() {
	if len(g.config.AllowedOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins:   g.config.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		})
		g.okapi.UseMiddleware(c.Handler)
	}

	instrument := observability.MetricsMiddleware(g.config.Metrics, g.config.Tracer)
	limited := func(h okapi.HandlerFunc) okapi.HandlerFunc { return instrument(g.rateLimit(h)) }

	g.okapi.Get("/", instrument(g.handleRoot),
		okapi.DocSummary("Backend banner"),
		okapi.DocTags("Health"),
		okapi.DocResponse(MessageResponse{}),
	)
	g.okapi.Get("/simulate", limited(g.handleSimulate),
		okapi.DocSummary("Run the four-agent disaster response simulation"),
		okapi.DocTags("Simulation"),
		okapi.DocResponse(orchestrator.Result{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusTooManyRequests, ErrorBody{}),
	)
	g.okapi.Get("/simulate/stream", limited(g.handleSimulateStream),
		okapi.DocSummary("Stream the simulation as server-sent events"),
		okapi.DocTags("Simulation"),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusTooManyRequests, ErrorBody{}),
	)
	g.okapi.Get("/analyze", limited(g.handleAnalyze),
		okapi.DocSummary("Run the Data Analyst only"),
		okapi.DocTags("Simulation"),
		okapi.DocResponse(AnalyzeResponse{}),
		okapi.DocResponse(http.StatusBadGateway, ErrorBody{}),
	)

	for _, er := range g.extraRoutes {
		g.okapi.HandleStd("GET", er.pattern, observability.HTTPMetricsMiddleware(g.config.Metrics, g.config.Tracer, er.handler).ServeHTTP)
	}

	// Unauthenticated health endpoints.
	g.okapi.Get("/healthz", g.handleLiveness)
	g.okapi.Get("/readyz", g.handleReadiness)

	if g.config.MetricsRegistry != nil {
		path := g.config.MetricsPath
		if path == "" {
			path = observability.DefaultMetricsPath
		}
		g.okapi.HandleStd("GET", path, promhttp.HandlerFor(g.config.MetricsRegistry, promhttp.HandlerOpts{}).ServeHTTP)
	}
}

// Start launches the HTTP server and blocks until it exits or ctx is canceled.
func (g *Gateway) Start(ctx context.Context) error {
	g.routes()

	srv := &http.Server{
		Addr:              g.config.ListenAddr,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// A simulation is four LLM round trips; stage timeouts bound it.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	g.mu.Lock()
	g.server = srv
	g.mu.Unlock()

	g.logger.Info("http api gateway starting", slog.String("addr", g.config.ListenAddr))
	return g.okapi.StartServer(srv)
}

// Stop gracefully shuts down the HTTP server.
func (g *Gateway) Stop(_ context.Context) error {
	g.mu.Lock()
	srv := g.server
	g.mu.Unlock()
	if srv == nil {
		return nil
	}
	g.logger.Info("http api gateway stopping")
	return g.okapi.Shutdown(srv)
}

// --- Handlers ---

// MessageResponse is the body of GET /.
type MessageResponse struct {
	Message string `json:"message"`
}

// AnalyzeResponse is the body of GET /analyze.
type AnalyzeResponse struct {
	Analysis string `json:"analysis"`
}

func (g *Gateway) handleRoot(c *okapi.Context) error {
	return c.OK(MessageResponse{Message: "Backend running 🚀"})
}

func (g *Gateway) handleSimulate(c *okapi.Context) error {
	scenario := scenarioParam(c)
	if scenario == "" {
		return c.AbortBadRequest("scenario is required")
	}
	ctx := g.runContext(c)

	g.logger.InfoContext(ctx, "http simulate",
		slog.String("run_id", orchestrator.RunIDFromContext(ctx)),
		slog.String("client", clientKey(c.Request())),
	)

	res := g.simulator.Run(ctx, scenario, nil)
	return c.OK(res)
}

func (g *Gateway) handleAnalyze(c *okapi.Context) error {
	scenario := scenarioParam(c)
	if scenario == "" {
		scenario = DefaultAnalyzeScenario
	}
	ctx := g.runContext(c)

	text, err := g.simulator.RunStage(ctx, agent.DataAnalyst, scenario)
	if err != nil {
		g.logger.WarnContext(ctx, "analysis failed",
			slog.String("run_id", orchestrator.RunIDFromContext(ctx)),
			slog.String("error", err.Error()),
		)
		return c.JSON(http.StatusBadGateway, ErrorBody{Error: err.Error()})
	}
	return c.OK(AnalyzeResponse{Analysis: text})
}

func (g *Gateway) handleLiveness(c *okapi.Context) error {
	if g.config.HealthChecker == nil {
		return c.OK(observability.HealthStatus{Status: "ok"})
	}
	return c.OK(g.config.HealthChecker.CheckHealth())
}

func (g *Gateway) handleReadiness(c *okapi.Context) error {
	if g.config.HealthChecker == nil {
		return c.OK(observability.HealthStatus{Status: "ok"})
	}
	status := g.config.HealthChecker.CheckReady(c.Context())
	if status.Status != "ok" {
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.OK(status)
}

// --- Middleware ---

// rateLimit rejects clients that exhausted their bucket with 429 and a
// Retry-After header.
func (g *Gateway) rateLimit(next okapi.HandlerFunc) okapi.HandlerFunc {
	return func(c *okapi.Context) error {
		if !g.limiter.Enabled() {
			return next(c)
		}
		client := clientKey(c.Request())
		wait, err := g.limiter.Allow(client)
		if err != nil {
			if g.config.Metrics != nil {
				g.config.Metrics.RateLimitedTotal.Inc()
			}
			g.logger.Warn("rate limited", slog.String("client", client), slog.Duration("retry_after", wait))
			c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
			return c.AbortTooManyRequests("rate limit exceeded")
		}
		return next(c)
	}
}

// --- Helpers ---

// runContext returns the request context, carrying the caller's request ID
// as the run ID when one was sent.
func (g *Gateway) runContext(c *okapi.Context) context.Context {
	ctx := c.Context()
	if id := strings.TrimSpace(c.Header(RequestIDHeader)); id != "" {
		ctx = orchestrator.ContextWithRunID(ctx, id)
	}
	return ctx
}

func scenarioParam(c *okapi.Context) string {
	return strings.TrimSpace(c.Request().URL.Query().Get("scenario"))
}

// clientKey identifies a client by remote host, without the port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func retryAfterSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}
