// Package routing plans a supply corridor between a staging base and a field
// hospital placed around an incident centre.
package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/swarmaid/swarmaid/internal/geo"
)

// ErrUnavailable matches any UnavailableError.
var ErrUnavailable = errors.New("routing unavailable")

// UnavailableError is returned when no engine produced a route.
type UnavailableError struct {
	Cause error
}

func (e *UnavailableError) Error() string {
	if e.Cause == nil {
		return ErrUnavailable.Error()
	}
	return e.Cause.Error()
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, ErrUnavailable) hold for every UnavailableError.
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// Engine computes a driving route between two points.
type Engine interface {
	Name() string
	Route(ctx context.Context, start, end geo.Point) (*Route, error)
}

// Route is a driving route returned by an engine.
type Route struct {
	Engine      string       `json:"engine"`
	DistanceKm  float64      `json:"distance_km"`
	DurationMin float64      `json:"duration_min"`
	Geometry    geo.Geometry `json:"geometry"`
}

func newRoute(engine string, meters, seconds float64, g geo.Geometry) *Route {
	return &Route{
		Engine:      engine,
		DistanceKm:  geo.Round(meters/1000, 1),
		DurationMin: geo.Round(seconds/60, 1),
		Geometry:    g,
	}
}

// Endpoints returns the staging base and field hospital for an incident centre.
func Endpoints(center geo.Point) (start, end geo.Point) {
	return center.Offset(-0.15, -0.15), center.Offset(0.10, 0.10)
}

// Plan is a successful routing outcome.
type Plan struct {
	Route *Route
	Start geo.Point
	End   geo.Point
}

// Features returns the corridor line followed by the start and end markers.
func (p *Plan) Features() []geo.Feature {
	line := geo.NewLineString(p.Route.Geometry, fmt.Sprintf("Primary Corridor (%s)", p.Route.Engine), geo.SeverityRoute)
	line.Properties["distance_km"] = p.Route.DistanceKm
	line.Properties["duration_min"] = p.Route.DurationMin
	return []geo.Feature{
		line,
		geo.NewPoint(p.Start, "Staging Base", geo.SeverityModerate),
		geo.NewPoint(p.End, "Field Hospital", geo.SeveritySevere),
	}
}

// Planner tries its engines in order and returns the first route.
type Planner struct {
	engines []Engine
	logger  *slog.Logger
}

// NewPlanner creates a planner. Engines are tried in the given order.
func NewPlanner(logger *slog.Logger, engines ...Engine) *Planner {
	return &Planner{engines: engines, logger: logger}
}

// Engines returns the names of the configured engines in order.
func (p *Planner) Engines() []string {
	names := make([]string, len(p.engines))
	for i, e := range p.engines {
		names[i] = e.Name()
	}
	return names
}

// Plan routes from the staging base to the field hospital around center.
// When every engine fails the error is an *UnavailableError carrying the
// last engine's failure.
func (p *Planner) Plan(ctx context.Context, center geo.Point) (*Plan, error) {
	start, end := Endpoints(center)
	if len(p.engines) == 0 {
		return nil, &UnavailableError{Cause: errors.New("no routing engine configured")}
	}

	var lastErr error
	for _, e := range p.engines {
		route, err := e.Route(ctx, start, end)
		if err == nil {
			p.logger.DebugContext(ctx, "route planned",
				slog.String("engine", e.Name()),
				slog.Float64("distance_km", route.DistanceKm),
			)
			return &Plan{Route: route, Start: start, End: end}, nil
		}
		lastErr = err
		p.logger.WarnContext(ctx, "routing engine failed",
			slog.String("engine", e.Name()),
			slog.String("error", err.Error()),
		)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, &UnavailableError{Cause: lastErr}
}
