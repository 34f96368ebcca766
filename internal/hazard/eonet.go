// Package hazard reads natural-hazard events from NASA EONET and filters them
// by distance from an incident.
package hazard

import (
	"context"
	"encoding/json"
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
	defaultBaseURL = "https://eonet.gsfc.nasa.gov/api/v3"
	defaultTimeout = 30 * time.Second
	defaultLimit   = 100
)

// Event is an EONET event. Only the fields used for proximity scans are decoded.
type Event struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Categories []Category      `json:"categories"`
	Geometry   []EventGeometry `json:"geometry"`
}

// Category is an EONET event category.
type Category struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// EventGeometry is one observation of an event. Coordinates are kept raw
// because EONET mixes Point and Polygon entries.
type EventGeometry struct {
	Date        string          `json:"date"`
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Client fetches open events from the EONET v3 API.
type Client struct {
	baseURL    string
	limit      int
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the EONET client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds a single feed request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates an EONET client.
func NewClient(logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		limit:      defaultLimit,
		timeout:    defaultTimeout,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenEvents returns the currently open events.
func (c *Client) OpenEvents(ctx context.Context) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("status", "open")
	q.Set("limit", strconv.Itoa(c.limit))

	var body struct {
		Events []Event `json:"events"`
	}
	start := time.Now()
	if err := httpx.GetJSON(ctx, c.httpClient, c.baseURL+"/events?"+q.Encode(), nil, &body); err != nil {
		return nil, fmt.Errorf("fetching EONET events: %w", err)
	}
	c.logger.DebugContext(ctx, "eonet events fetched",
		slog.Int("count", len(body.Events)),
		slog.Duration("duration", time.Since(start)),
	)
	return body.Events, nil
}
