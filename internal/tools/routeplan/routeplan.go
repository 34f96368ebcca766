// Package routeplan implements the Logistics Manager's route planner tool.
package routeplan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/swarmaid/swarmaid/internal/geo"
	"github.com/swarmaid/swarmaid/internal/routing"
	"github.com/swarmaid/swarmaid/internal/tools"
)

// Planner is the routing dependency of the tool.
type Planner interface {
	Plan(ctx context.Context, center geo.Point) (*routing.Plan, error)
}

// Tool computes a staging-to-hospital corridor for the scenario location.
type Tool struct {
	geocoder geo.Geocoder
	planner  Planner
	logger   *slog.Logger
}

var _ tools.Tool = (*Tool)(nil)

// NewTool creates the route planner tool.
func NewTool(geocoder geo.Geocoder, planner Planner, logger *slog.Logger) *Tool {
	return &Tool{geocoder: geocoder, planner: planner, logger: logger}
}

func (t *Tool) Name() string { return "Route Planner" }
func (t *Tool) Description() string {
	return "Compute real road routes (staging → field hospital) for a given location. " +
		"Outputs a logistics summary with distances, timing, staging depots, and alternates."
}

// Execute returns a brief plus corridor features on success. Geocoding and
// routing failures are direct answers with no features.
func (t *Tool) Execute(ctx context.Context, query string) (*tools.Result, error) {
	center, err := t.geocoder.Geocode(ctx, query)
	if err != nil {
		msg := fmt.Sprintf(
			"❌ Could not geocode a precise point for: '%s'. Please try a more specific place (e.g., 'Lahore, Pakistan' instead of 'America').",
			query)
		if errors.Is(err, geo.ErrNotFound) {
			return tools.Answer(msg), nil
		}
		t.logger.WarnContext(ctx, "geocoding failed", slog.String("query", query), slog.String("error", err.Error()))
		return tools.Fallback(msg, true), nil
	}

	plan, err := t.planner.Plan(ctx, center)
	if err != nil {
		start, end := routing.Endpoints(center)
		return tools.Fallback(Guidance(err, start, end), true), nil
	}

	r := plan.Route
	res := tools.Brief(fmt.Sprintf(
		"Plan safe supply routes for '%s'. Primary corridor via %s: ~%g km, ~%g min. "+
			"Staging at %s, destination at %s. "+
			"Give step-by-step logistics guidance: entry corridors, alternates, staging depots, ambulance lanes, "+
			"bridge/overpass avoidance, and refuel/comms nodes.",
		query, r.Engine, r.DistanceKm, r.DurationMin, plan.Start, plan.End))
	res.Features = plan.Features()
	res.Metadata = map[string]any{"engine": r.Engine, "distance_km": r.DistanceKm, "duration_min": r.DurationMin}
	return res, nil
}

// Guidance is the interim advice given when no route could be computed.
func Guidance(err error, start, end geo.Point) string {
	return fmt.Sprintf(
		"⚠️ Routing temporarily unavailable (%v). Interim guidance: move via secondary arterials from %s toward %s, "+
			"avoid bridge choke-points, set refuel/relay every 8–12 km.",
		err, start, end)
}
