// Package anthropic implements the LLM provider interface for the Anthropic Messages API.
package anthropic

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/swarmaid/swarmaid/internal/httpx"
	"github.com/swarmaid/swarmaid/internal/llm"
)

const (
	defaultBaseURL  = "https://api.anthropic.com"
	messagesPath    = "/v1/messages"
	apiVersion      = "2023-06-01"
	defaultMaxToken = 1024
)

// Client implements llm.Provider using the Anthropic Messages API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Anthropic client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an Anthropic provider.
func NewClient(apiKey, model string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return "anthropic" }

// SendMessage sends the conversation to the Messages API.
func (c *Client) SendMessage(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	header := http.Header{}
	header.Set("X-API-Key", c.apiKey)
	header.Set("Anthropic-Version", apiVersion)

	var apiResp apiResponse
	if err := httpx.PostJSON(ctx, c.httpClient, c.baseURL+messagesPath, header, c.buildRequest(req), &apiResp); err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, b := range apiResp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	resp := &llm.Response{
		Content:    sb.String(),
		StopReason: apiResp.StopReason,
		Usage: llm.Usage{
			InputTokens:  apiResp.Usage.InputTokens,
			OutputTokens: apiResp.Usage.OutputTokens,
		},
	}

	c.logger.DebugContext(ctx, "llm request completed",
		slog.String("provider", "anthropic"),
		slog.String("model", c.model),
		slog.Int("input_tokens", resp.Usage.InputTokens),
		slog.Int("output_tokens", resp.Usage.OutputTokens),
		slog.String("stop_reason", resp.StopReason),
	)
	return resp, nil
}

func (c *Client) buildRequest(req *llm.Request) apiRequest {
	msgs := make([]apiMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, apiMessage{Role: string(m.Role), Content: m.Content})
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxToken
	}
	return apiRequest{
		Model:       c.model,
		System:      req.SystemPrompt,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: req.SamplingTemperature(),
	}
}

// --- Messages API wire types (unexported) ---

type apiRequest struct {
	Model       string       `json:"model"`
	System      string       `json:"system,omitempty"`
	Messages    []apiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens"`
	Temperature float64      `json:"temperature"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiResponse struct {
	Content    []apiContentBlock `json:"content"`
	StopReason string            `json:"stop_reason"`
	Usage      apiUsage          `json:"usage"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
