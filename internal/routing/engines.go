package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/swarmaid/swarmaid/internal/geo"
	"github.com/swarmaid/swarmaid/internal/httpx"
)

const (
	defaultORSURL      = "https://api.openrouteservice.org"
	defaultOSRMURL     = "https://router.project-osrm.org"
	defaultORSTimeout  = 30 * time.Second
	defaultOSRMTimeout = 25 * time.Second
)

// Option configures a routing engine.
type Option func(*engineConfig)

type engineConfig struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// WithBaseURL overrides the engine's base URL.
func WithBaseURL(u string) Option {
	return func(c *engineConfig) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *engineConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *engineConfig) { c.httpClient = hc }
}

func newEngineConfig(baseURL string, timeout time.Duration, opts []Option) engineConfig {
	c := engineConfig{baseURL: baseURL, timeout: timeout, httpClient: &http.Client{}}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// ORS routes through OpenRouteService. It needs an API key.
type ORS struct {
	apiKey string
	cfg    engineConfig
}

var _ Engine = (*ORS)(nil)

// NewORS creates an OpenRouteService engine.
func NewORS(apiKey string, opts ...Option) *ORS {
	return &ORS{apiKey: apiKey, cfg: newEngineConfig(defaultORSURL, defaultORSTimeout, opts)}
}

func (o *ORS) Name() string { return "openrouteservice" }

type orsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type orsResponse struct {
	Features []struct {
		Geometry   geo.Geometry `json:"geometry"`
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

func (o *ORS) Route(ctx context.Context, start, end geo.Point) (*Route, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.timeout)
	defer cancel()

	header := http.Header{}
	header.Set("Authorization", o.apiKey)
	body := orsRequest{Coordinates: [][]float64{start.LonLat(), end.LonLat()}}

	var resp orsResponse
	if err := httpx.PostJSON(ctx, o.cfg.httpClient, o.cfg.baseURL+"/v2/directions/driving-car/geojson", header, body, &resp); err != nil {
		return nil, fmt.Errorf("ORS routing failed: %w", err)
	}
	if len(resp.Features) == 0 {
		return nil, errors.New("ORS routing failed: no route features")
	}
	f := resp.Features[0]
	if !hasPath(f.Geometry) {
		return nil, errors.New("ORS routing failed: route has no geometry")
	}
	return newRoute(o.Name(), f.Properties.Summary.Distance, f.Properties.Summary.Duration, f.Geometry), nil
}

// OSRM routes through a public OSRM server. No key is required.
type OSRM struct {
	cfg engineConfig
}

var _ Engine = (*OSRM)(nil)

// NewOSRM creates an OSRM engine.
func NewOSRM(opts ...Option) *OSRM {
	return &OSRM{cfg: newEngineConfig(defaultOSRMURL, defaultOSRMTimeout, opts)}
}

func (o *OSRM) Name() string { return "osrm" }

type osrmResponse struct {
	Routes []struct {
		Distance float64      `json:"distance"`
		Duration float64      `json:"duration"`
		Geometry geo.Geometry `json:"geometry"`
	} `json:"routes"`
}

func (o *OSRM) Route(ctx context.Context, start, end geo.Point) (*Route, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("overview", "full")
	params.Set("alternatives", "false")
	params.Set("geometries", "geojson")
	u := fmt.Sprintf("%s/route/v1/driving/%g,%g;%g,%g?%s",
		o.cfg.baseURL, start.Lon, start.Lat, end.Lon, end.Lat, params.Encode())

	var resp osrmResponse
	if err := httpx.GetJSON(ctx, o.cfg.httpClient, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("OSRM routing failed: %w", err)
	}
	if len(resp.Routes) == 0 {
		return nil, errors.New("OSRM routing failed: no route found")
	}
	r := resp.Routes[0]
	if !hasPath(r.Geometry) {
		return nil, errors.New("OSRM routing failed: route has no geometry")
	}
	return newRoute(o.Name(), r.Distance, r.Duration, r.Geometry), nil
}

// hasPath reports whether g is a line with at least two positions.
func hasPath(g geo.Geometry) bool {
	var positions [][]float64
	if err := json.Unmarshal(g.Coordinates, &positions); err != nil {
		return false
	}
	return len(positions) >= 2
}
