// Package config handles loading and validating swarmaid configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()
}

// Config is the root configuration for swarmaid.
type Config struct {
	Logging       LoggingConfig        `json:"logging" yaml:"logging"`
	Server        ServerConfig         `json:"server" yaml:"server"`
	Providers     ProvidersConfig      `json:"providers" yaml:"providers"`
	Agents        AgentsConfig         `json:"agents" yaml:"agents"`
	Geocoder      GeocoderConfig       `json:"geocoder" yaml:"geocoder"`
	Hazards       HazardsConfig        `json:"hazards" yaml:"hazards"`
	Routing       RoutingConfig        `json:"routing" yaml:"routing"`
	Social        SocialConfig         `json:"social" yaml:"social"`
	Pipeline      PipelineConfig       `json:"pipeline" yaml:"pipeline"`
	Observability *ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"` // nil = observability disabled
	MCP           MCPConfig            `json:"mcp" yaml:"mcp"`
	Secrets       *SecretsConfig       `json:"secrets,omitempty" yaml:"secrets,omitempty"` // nil = env:// references only
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error. Default: info.
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	ListenAddr  string           `json:"listen_addr" yaml:"listen_addr"` // Default: ":8000".
	EnableDocs  bool             `json:"enable_docs" yaml:"enable_docs"`
	CORSOrigins []string         `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
	RateLimit   RateLimitConfig  `json:"rate_limit" yaml:"rate_limit"`
	WebSocket   *WebSocketConfig `json:"websocket,omitempty" yaml:"websocket,omitempty"` // nil = WebSocket disabled
}

// Addr returns the listen address with a default of ":8000".
func (s *ServerConfig) Addr() string {
	if s != nil && s.ListenAddr != "" {
		return s.ListenAddr
	}
	return ":8000"
}

// AllowedOrigins returns the CORS origins, defaulting to the local frontend.
func (s *ServerConfig) AllowedOrigins() []string {
	if s != nil && len(s.CORSOrigins) > 0 {
		return s.CORSOrigins
	}
	return []string{"http://localhost:3000", "http://127.0.0.1:3000"}
}

// WebSocketConfig configures the streaming WebSocket endpoint.
type WebSocketConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"` // Default: "/ws".
}

// WSPath returns the WebSocket path with a default of "/ws".
func (w *WebSocketConfig) WSPath() string {
	if w != nil && w.Path != "" {
		return w.Path
	}
	return "/ws"
}

// RateLimitConfig configures per-client rate limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`
	BurstSize         int `json:"burst_size" yaml:"burst_size"`
}

// ProvidersConfig configures the LLM backends.
type ProvidersConfig struct {
	Default   string          `json:"default" yaml:"default"`                       // "openai", "gemini", "anthropic", "ollama". Empty = "openai".
	Fallback  []string        `json:"fallback,omitempty" yaml:"fallback,omitempty"` // Fallback providers tried in order when default fails.
	OpenAI    OpenAIConfig    `json:"openai" yaml:"openai"`
	Gemini    GeminiConfig    `json:"gemini" yaml:"gemini"`
	Anthropic AnthropicConfig `json:"anthropic" yaml:"anthropic"`
	Ollama    OllamaConfig    `json:"ollama" yaml:"ollama"`
}

// OpenAIConfig covers any OpenAI-compatible chat completions API (AIML included).
type OpenAIConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	Model   string `json:"model" yaml:"model"`       // Default: gpt-5-chat-latest.
	BaseURL string `json:"base_url" yaml:"base_url"` // Default: https://api.aimlapi.com/v1.
}

// ModelName returns the configured model or the AIML default.
func (o OpenAIConfig) ModelName() string {
	if o.Model != "" {
		return o.Model
	}
	return "gpt-5-chat-latest"
}

// Endpoint returns the configured base URL or the AIML default.
func (o OpenAIConfig) Endpoint() string {
	if o.BaseURL != "" {
		return o.BaseURL
	}
	return "https://api.aimlapi.com/v1"
}

type GeminiConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	Model   string `json:"model" yaml:"model"`       // Default: gemini-2.0-flash.
	BaseURL string `json:"base_url" yaml:"base_url"` // Optional. Defaults to https://generativelanguage.googleapis.com.
}

// ModelName returns the configured Gemini model.
func (g GeminiConfig) ModelName() string {
	if g.Model != "" {
		return g.Model
	}
	return "gemini-2.0-flash"
}

type AnthropicConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url" yaml:"base_url"`
}

type OllamaConfig struct {
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url" yaml:"base_url"` // Optional. Defaults to http://localhost:11434/v1.
}

// AgentsConfig overrides which provider drives each agent.
// Keys are agent names as they appear in logs ("Data Analyst", "Critic", ...).
type AgentsConfig struct {
	Providers   map[string]string `json:"providers,omitempty" yaml:"providers,omitempty"`
	Temperature *float64          `json:"temperature,omitempty" yaml:"temperature,omitempty"` // Default: 0.2.
	MaxTokens   int               `json:"max_tokens" yaml:"max_tokens"`                       // Default: 1024.
}

// ProviderFor returns the provider name for an agent, or "" for the default.
func (a AgentsConfig) ProviderFor(agent string) string {
	return a.Providers[agent]
}

// SamplingTemperature returns the configured temperature or 0.2.
func (a AgentsConfig) SamplingTemperature() float64 {
	if a.Temperature != nil {
		return *a.Temperature
	}
	return 0.2
}

// TokenLimit returns the per-reply token limit.
func (a AgentsConfig) TokenLimit() int {
	if a.MaxTokens > 0 {
		return a.MaxTokens
	}
	return 1024
}

// GeocoderConfig configures the Nominatim geocoder.
type GeocoderConfig struct {
	BaseURL        string `json:"base_url" yaml:"base_url"` // Default: https://nominatim.openstreetmap.org.
	UserAgent      string `json:"user_agent" yaml:"user_agent"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"` // Default: 5.
	Attempts       int    `json:"attempts" yaml:"attempts"`               // Default: 3.
	CacheSize      int    `json:"cache_size" yaml:"cache_size"`           // Default: 256.
}

// Timeout returns the per-request geocoding timeout.
func (g GeocoderConfig) Timeout() time.Duration {
	if g.TimeoutSeconds > 0 {
		return time.Duration(g.TimeoutSeconds) * time.Second
	}
	return 5 * time.Second
}

// CacheEntries returns the geocode memo size.
func (g GeocoderConfig) CacheEntries() int {
	if g.CacheSize > 0 {
		return g.CacheSize
	}
	return 256
}

// MaxAttempts returns the number of geocoding attempts on transient errors.
func (g GeocoderConfig) MaxAttempts() int {
	if g.Attempts > 0 {
		return g.Attempts
	}
	return 3
}

// HazardsConfig configures the NASA EONET feed.
type HazardsConfig struct {
	BaseURL         string  `json:"base_url" yaml:"base_url"` // Default: https://eonet.gsfc.nasa.gov/api/v3.
	TimeoutSeconds  int     `json:"timeout_seconds" yaml:"timeout_seconds"`
	RadiusKm        float64 `json:"radius_km" yaml:"radius_km"`               // Default: 1000.
	Limit           int     `json:"limit" yaml:"limit"`                       // Default: 10.
	MaxAgeSeconds   int     `json:"max_age_seconds" yaml:"max_age_seconds"`   // Snapshot freshness. 0 = always refetch.
	RefreshSchedule string  `json:"refresh_schedule" yaml:"refresh_schedule"` // Cron expression. Empty = on demand only.
}

// Timeout returns the EONET request timeout.
func (h HazardsConfig) Timeout() time.Duration {
	if h.TimeoutSeconds > 0 {
		return time.Duration(h.TimeoutSeconds) * time.Second
	}
	return 30 * time.Second
}

// Radius returns the nearby-hazard radius in km.
func (h HazardsConfig) Radius() float64 {
	if h.RadiusKm > 0 {
		return h.RadiusKm
	}
	return 1000
}

// MaxEvents returns the number of nearby hazards reported.
func (h HazardsConfig) MaxEvents() int {
	if h.Limit > 0 {
		return h.Limit
	}
	return 10
}

// MaxAge returns how long a feed snapshot is served before refetching.
func (h HazardsConfig) MaxAge() time.Duration {
	return time.Duration(h.MaxAgeSeconds) * time.Second
}

// RoutingConfig configures the ORS and OSRM engines.
type RoutingConfig struct {
	ORSAPIKey    string `json:"ors_api_key,omitempty" yaml:"ors_api_key,omitempty"` // Override: ORS_API_KEY env var.
	ORSBaseURL   string `json:"ors_base_url" yaml:"ors_base_url"`
	OSRMBaseURL  string `json:"osrm_base_url" yaml:"osrm_base_url"`
	ORSTimeoutS  int    `json:"ors_timeout_seconds" yaml:"ors_timeout_seconds"`   // Default: 30.
	OSRMTimeoutS int    `json:"osrm_timeout_seconds" yaml:"osrm_timeout_seconds"` // Default: 25.
}

// ORSTimeout returns the OpenRouteService request timeout.
func (r RoutingConfig) ORSTimeout() time.Duration {
	if r.ORSTimeoutS > 0 {
		return time.Duration(r.ORSTimeoutS) * time.Second
	}
	return 30 * time.Second
}

// OSRMTimeout returns the OSRM request timeout.
func (r RoutingConfig) OSRMTimeout() time.Duration {
	if r.OSRMTimeoutS > 0 {
		return time.Duration(r.OSRMTimeoutS) * time.Second
	}
	return 25 * time.Second
}

// SocialConfig configures the X recent-search client.
type SocialConfig struct {
	BearerToken    string `json:"bearer_token,omitempty" yaml:"bearer_token,omitempty"` // Override: X_BEARER_TOKEN env var.
	BaseURL        string `json:"base_url" yaml:"base_url"`                             // Default: https://api.twitter.com.
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`               // Default: 15.
}

// Timeout returns the X API request timeout.
func (s SocialConfig) Timeout() time.Duration {
	if s.TimeoutSeconds > 0 {
		return time.Duration(s.TimeoutSeconds) * time.Second
	}
	return 15 * time.Second
}

// PipelineConfig tunes the simulation run.
type PipelineConfig struct {
	StageTimeoutSeconds int   `json:"stage_timeout_seconds" yaml:"stage_timeout_seconds"` // Default: 120.
	TriageLayer         *bool `json:"include_triage_layer,omitempty" yaml:"include_triage_layer,omitempty"`
	ToolCacheTTLSeconds int   `json:"tool_cache_ttl_seconds" yaml:"tool_cache_ttl_seconds"` // Default: 300.
}

// StageTimeout returns the per-stage deadline.
func (p PipelineConfig) StageTimeout() time.Duration {
	if p.StageTimeoutSeconds > 0 {
		return time.Duration(p.StageTimeoutSeconds) * time.Second
	}
	return 120 * time.Second
}

// IncludeTriageLayer reports whether triage clusters are drawn on the map. Default: true.
func (p PipelineConfig) IncludeTriageLayer() bool {
	return p.TriageLayer == nil || *p.TriageLayer
}

// ToolCacheTTL returns how long tool results are reused.
func (p PipelineConfig) ToolCacheTTL() time.Duration {
	if p.ToolCacheTTLSeconds > 0 {
		return time.Duration(p.ToolCacheTTLSeconds) * time.Second
	}
	return 5 * time.Minute
}

// ObservabilityConfig configures metrics and tracing.
// When nil, all observability features are disabled with zero overhead.
type ObservabilityConfig struct {
	Metrics *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing *TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"` // Default: "/metrics"
}

// TracingConfig configures OpenTelemetry distributed tracing.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`         // OTLP endpoint, e.g. "localhost:4317"
	Protocol    string  `json:"protocol" yaml:"protocol"`         // "grpc" or "http". Default: "grpc"
	ServiceName string  `json:"service_name" yaml:"service_name"` // Default: "swarmaid"
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"`   // 0.0–1.0. Default: 1.0
	Insecure    bool    `json:"insecure" yaml:"insecure"`         // Skip TLS for dev
}

// MCPConfig configures the MCP server.
type MCPConfig struct {
	Transport  string `json:"transport" yaml:"transport"`     // "stdio" or "http". Default: "stdio".
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"` // Default: ":8082".
	Endpoint   string `json:"endpoint" yaml:"endpoint"`       // Default: "/mcp".
}

// TransportName returns the MCP transport.
func (m MCPConfig) TransportName() string {
	if m.Transport != "" {
		return m.Transport
	}
	return "stdio"
}

// Addr returns the MCP HTTP listen address.
func (m MCPConfig) Addr() string {
	if m.ListenAddr != "" {
		return m.ListenAddr
	}
	return ":8082"
}

// EndpointPath returns the MCP HTTP path.
func (m MCPConfig) EndpointPath() string {
	if m.Endpoint != "" {
		return m.Endpoint
	}
	return "/mcp"
}

// SecretsConfig configures how credential references in config values are
// resolved. Any API key may be written as "env://VAR" or, when Vault is
// configured, "vault://<kv v2 path>#<field>".
type SecretsConfig struct {
	Vault *VaultConfig `json:"vault,omitempty" yaml:"vault,omitempty"`
}

// VaultConfig configures the HashiCorp Vault KV v2 resolver.
// VAULT_ADDR, VAULT_TOKEN and VAULT_NAMESPACE take precedence.
type VaultConfig struct {
	Address        string `json:"address" yaml:"address"`
	Token          string `json:"token" yaml:"token"`
	Namespace      string `json:"namespace" yaml:"namespace"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"` // Default: 5.
	TLSSkipVerify  bool   `json:"tls_skip_verify" yaml:"tls_skip_verify"`
}

// Timeout returns the Vault request timeout.
func (v *VaultConfig) Timeout() time.Duration {
	if v != nil && v.TimeoutSeconds > 0 {
		return time.Duration(v.TimeoutSeconds) * time.Second
	}
	return 5 * time.Second
}

// CredentialFields returns pointers to every config value that may hold a
// credential reference, keyed by its config path.
func (c *Config) CredentialFields() map[string]*string {
	return map[string]*string{
		"providers.openai.api_key":    &c.Providers.OpenAI.APIKey,
		"providers.gemini.api_key":    &c.Providers.Gemini.APIKey,
		"providers.anthropic.api_key": &c.Providers.Anthropic.APIKey,
		"routing.ors_api_key":         &c.Routing.ORSAPIKey,
		"social.bearer_token":         &c.Social.BearerToken,
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return "swarmaid.yaml"
}

// Default returns a configuration with every section at its defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.Providers.Default = cfg.defaultProvider()
	return cfg
}

// Load reads a JSON or YAML config file and returns a validated Config.
// The format is detected by file extension: .yml/.yaml for YAML, everything else for JSON.
// A missing file is not an error: defaults plus environment overrides are used.
func Load(path string) (*Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path %s: %w", path, err)
	}

	var cfg Config
	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", resolved, err)
	default:
		switch ext := strings.ToLower(filepath.Ext(resolved)); ext {
		case ".yml", ".yaml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing YAML config %s: %w", resolved, err)
			}
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing JSON config %s: %w", resolved, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// applyEnv lets environment variables take precedence over file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("AIML_API_KEY"); v != "" {
		c.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Providers.OpenAI.APIKey == "" {
		c.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Providers.Gemini.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Providers.Anthropic.APIKey = v
	}
	if v := os.Getenv("ORS_API_KEY"); v != "" {
		c.Routing.ORSAPIKey = v
	}
	if v := os.Getenv("X_BEARER_TOKEN"); v != "" {
		c.Social.BearerToken = v
	}
	if v := os.Getenv("SWARMAID_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
}

// defaultProvider picks the first backend with credentials when none is named.
func (c *Config) defaultProvider() string {
	if c.Providers.Default != "" {
		return c.Providers.Default
	}
	switch {
	case c.Providers.OpenAI.APIKey != "":
		return "openai"
	case c.Providers.Gemini.APIKey != "":
		return "gemini"
	case c.Providers.Anthropic.APIKey != "":
		return "anthropic"
	default:
		return "openai"
	}
}

// resolvePath expands ~ to the user home directory and returns an absolute path.
func resolvePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}

func (c *Config) validate() error {
	c.Providers.Default = c.defaultProvider()
	if err := c.validateProvider(c.Providers.Default); err != nil {
		return err
	}
	for agent, name := range c.Agents.Providers {
		if err := c.validateProvider(name); err != nil {
			return fmt.Errorf("agents.providers[%q]: %w", agent, err)
		}
	}
	if t := c.Agents.SamplingTemperature(); t < 0 || t > 2 {
		return fmt.Errorf("agents.temperature must be within [0, 2], got %v", t)
	}
	if c.Server.RateLimit.RequestsPerMinute < 0 || c.Server.RateLimit.BurstSize < 0 {
		return fmt.Errorf("server.rate_limit values must not be negative")
	}
	if c.Hazards.RadiusKm < 0 {
		return fmt.Errorf("hazards.radius_km must not be negative")
	}
	switch c.MCP.TransportName() {
	case "stdio", "http":
	default:
		return fmt.Errorf("mcp.transport %q is not supported (use stdio or http)", c.MCP.Transport)
	}
	if c.Observability != nil && c.Observability.Tracing != nil && c.Observability.Tracing.Enabled {
		if c.Observability.Tracing.Endpoint == "" {
			return fmt.Errorf("observability.tracing.endpoint is required when tracing is enabled")
		}
	}
	return nil
}

// validateProvider checks that a named provider is known.
// Missing API keys are tolerated: agents degrade to error entries in the run log.
func (c *Config) validateProvider(name string) error {
	switch name {
	case "openai", "gemini", "ollama":
	case "anthropic":
		if c.Providers.Anthropic.Model == "" {
			return fmt.Errorf("providers.anthropic.model is required")
		}
	default:
		return fmt.Errorf("provider %q is not supported (use openai, gemini, anthropic, or ollama)", name)
	}
	return nil
}
