// Package gemini implements the LLM provider interface for the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/swarmaid/swarmaid/internal/httpx"
	"github.com/swarmaid/swarmaid/internal/llm"
)

const (
	defaultBaseURL   = "https://generativelanguage.googleapis.com"
	defaultModel     = "gemini-2.0-flash"
	defaultMaxTokens = 1024
)

// Client implements llm.Provider using the Gemini generateContent API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Gemini client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Gemini provider.
func NewClient(apiKey, model string, logger *slog.Logger, opts ...Option) *Client {
	if model == "" {
		model = defaultModel
	}
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

func (c *Client) Name() string { return "gemini" }

// SendMessage sends the conversation to the generateContent endpoint.
func (c *Client) SendMessage(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	header := http.Header{}
	header.Set("x-goog-api-key", c.apiKey)

	var apiResp apiResponse
	if err := httpx.PostJSON(ctx, c.httpClient, url, header, buildRequest(req), &apiResp); err != nil {
		return nil, err
	}

	resp := toResponse(&apiResp)
	c.logger.DebugContext(ctx, "llm request completed",
		slog.String("provider", "gemini"),
		slog.String("model", c.model),
		slog.Int("input_tokens", resp.Usage.InputTokens),
		slog.Int("output_tokens", resp.Usage.OutputTokens),
		slog.String("stop_reason", resp.StopReason),
	)
	return resp, nil
}

func buildRequest(req *llm.Request) apiRequest {
	contents := make([]apiContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		contents = append(contents, apiContent{Role: role, Parts: []apiPart{{Text: m.Content}}})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	apiReq := apiRequest{
		Contents: contents,
		GenerationConfig: &apiGenerationConfig{
			MaxOutputTokens: maxTokens,
			Temperature:     req.SamplingTemperature(),
		},
	}
	if req.SystemPrompt != "" {
		apiReq.SystemInstruction = &apiContent{Parts: []apiPart{{Text: req.SystemPrompt}}}
	}
	return apiReq
}

func toResponse(apiResp *apiResponse) *llm.Response {
	resp := &llm.Response{}
	if apiResp.UsageMetadata != nil {
		resp.Usage = llm.Usage{
			InputTokens:  apiResp.UsageMetadata.PromptTokenCount,
			OutputTokens: apiResp.UsageMetadata.CandidatesTokenCount,
		}
	}
	if len(apiResp.Candidates) == 0 {
		return resp
	}

	candidate := apiResp.Candidates[0]
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	resp.Content = sb.String()

	switch candidate.FinishReason {
	case "STOP":
		resp.StopReason = "end_turn"
	case "MAX_TOKENS":
		resp.StopReason = "max_tokens"
	default:
		resp.StopReason = strings.ToLower(candidate.FinishReason)
	}
	return resp
}

// --- Gemini API wire types (unexported) ---

type apiRequest struct {
	Contents          []apiContent         `json:"contents"`
	SystemInstruction *apiContent          `json:"system_instruction,omitempty"`
	GenerationConfig  *apiGenerationConfig `json:"generation_config,omitempty"`
}

type apiContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []apiPart `json:"parts"`
}

type apiPart struct {
	Text string `json:"text,omitempty"`
}

type apiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature"`
}

type apiResponse struct {
	Candidates    []apiCandidate `json:"candidates"`
	UsageMetadata *apiUsage      `json:"usageMetadata,omitempty"`
}

type apiCandidate struct {
	Content      apiContent `json:"content"`
	FinishReason string     `json:"finishReason"`
}

type apiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}
