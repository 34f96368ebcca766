package geo

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

	"github.com/cenkalti/backoff/v5"
	"github.com/swarmaid/swarmaid/internal/httpx"
)

// ErrNotFound is returned when a place name has no geocoding match.
var ErrNotFound = errors.New("place not found")

const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org"
	defaultUserAgent    = "swarm-aid-logistics/1.0 (contact: ops@swarm-aid.local)"
	defaultAttempts     = 3
	defaultRetryPause   = 600 * time.Millisecond
	defaultGeoTimeout   = 5 * time.Second
)

// Geocoder resolves a free-text place name to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (Point, error)
}

// Nominatim geocodes through the OpenStreetMap Nominatim search API.
type Nominatim struct {
	baseURL    string
	userAgent  string
	attempts   int
	pause      time.Duration
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Geocoder = (*Nominatim)(nil)

// NominatimOption configures the Nominatim geocoder.
type NominatimOption func(*Nominatim)

// WithBaseURL overrides the Nominatim base URL.
func WithBaseURL(u string) NominatimOption {
	return func(n *Nominatim) { n.baseURL = strings.TrimRight(u, "/") }
}

// WithUserAgent sets the User-Agent Nominatim's usage policy requires.
func WithUserAgent(ua string) NominatimOption {
	return func(n *Nominatim) { n.userAgent = ua }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) NominatimOption {
	return func(n *Nominatim) { n.httpClient = hc }
}

// WithRetry sets the attempt count and pause used on transient failures.
func WithRetry(attempts int, pause time.Duration) NominatimOption {
	return func(n *Nominatim) {
		n.attempts = attempts
		n.pause = pause
	}
}

// WithTimeout bounds each lookup attempt.
func WithTimeout(d time.Duration) NominatimOption {
	return func(n *Nominatim) { n.timeout = d }
}

// NewNominatim creates a Nominatim geocoder.
func NewNominatim(logger *slog.Logger, opts ...NominatimOption) *Nominatim {
	n := &Nominatim{
		baseURL:    defaultNominatimURL,
		userAgent:  defaultUserAgent,
		attempts:   defaultAttempts,
		pause:      defaultRetryPause,
		timeout:    defaultGeoTimeout,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.attempts < 1 {
		n.attempts = 1
	}
	return n
}

// Geocode returns the best match for place. Transient failures (timeouts,
// 429, 5xx) are retried; a missing match is not.
func (n *Nominatim) Geocode(ctx context.Context, place string) (Point, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return Point{}, ErrNotFound
	}

	attempt := 0
	p, err := backoff.Retry(ctx, func() (Point, error) {
		attempt++
		pt, err := n.lookup(ctx, place)
		if err == nil {
			return pt, nil
		}
		if errors.Is(err, ErrNotFound) || !httpx.IsTransient(err) || ctx.Err() != nil {
			return Point{}, backoff.Permanent(err)
		}
		n.logger.DebugContext(ctx, "geocode attempt failed",
			slog.String("place", place),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		return Point{}, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(n.pause)),
		backoff.WithMaxTries(uint(n.attempts)),
	)
	if err == nil {
		return p, nil
	}
	// The last try returns its error as-is, permanent or not.
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return Point{}, permanent.Unwrap()
	}
	if errors.Is(err, ErrNotFound) || !httpx.IsTransient(err) || ctx.Err() != nil {
		return Point{}, err
	}
	return Point{}, fmt.Errorf("geocoding %q: %w", place, err)
}

func (n *Nominatim) lookup(ctx context.Context, place string) (Point, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "json")
	q.Set("limit", "1")
	header := http.Header{}
	header.Set("User-Agent", n.userAgent)

	var results []nominatimResult
	if err := httpx.GetJSON(ctx, n.httpClient, n.baseURL+"/search?"+q.Encode(), header, &results); err != nil {
		return Point{}, err
	}
	if len(results) == 0 {
		return Point{}, ErrNotFound
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Point{}, fmt.Errorf("parsing latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Point{}, fmt.Errorf("parsing longitude %q: %w", results[0].Lon, err)
	}
	return Point{Lat: lat, Lon: lon}, nil
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
