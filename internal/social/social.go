// Package social searches recent posts on X for disaster signals.
package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/swarmaid/swarmaid/internal/httpx"
)

const (
	defaultBaseURL = "https://api.twitter.com"
	searchPath     = "/2/tweets/search/recent"
	// The recent-search endpoint rejects max_results below 10.
	minPageSize    = 10
	defaultTimeout = 15 * time.Second
)

// ErrNoCredentials is returned when the client has no bearer token.
var ErrNoCredentials = errors.New("no X bearer token configured")

// ErrNoResults is returned when a search matches nothing.
var ErrNoResults = errors.New("no tweets found")

// Searcher returns the text of recent posts matching a query.
type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]string, error)
}

// Client calls the X API v2 recent search endpoint.
type Client struct {
	token      string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Searcher = (*Client)(nil)

// Option configures the X client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds a single search.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates an X search client authenticated with an app bearer token.
func NewClient(token string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		timeout:    defaultTimeout,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns up to n English original posts (no retweets or replies).
func (c *Client) Search(ctx context.Context, query string, n int) ([]string, error) {
	if c.token == "" {
		return nil, ErrNoCredentials
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("query", strings.TrimSpace(query)+" -is:retweet -is:reply lang:en")
	q.Set("max_results", strconv.Itoa(max(n, minPageSize)))
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	var body struct {
		Data []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := httpx.GetJSON(ctx, c.httpClient, c.baseURL+searchPath+"?"+q.Encode(), header, &body); err != nil {
		return nil, fmt.Errorf("searching recent tweets: %w", err)
	}

	texts := make([]string, 0, n)
	for _, d := range body.Data {
		if len(texts) == n {
			break
		}
		if t := strings.TrimSpace(d.Text); t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return nil, ErrNoResults
	}
	c.logger.DebugContext(ctx, "tweets fetched", slog.Int("count", len(texts)))
	return texts, nil
}

// FallbackTweets are sample field reports used when search is unavailable.
func FallbackTweets() []string {
	return []string{
		"Central hospitals overwhelmed with casualties.",
		"Eastern districts need urgent trauma care and burn units.",
		"Shortage of ambulances delaying medical response.",
		"Rescue workers report crush injuries and fractures.",
		"Children suffering shock and dehydration in shelters.",
	}
}
