package orchestrator

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/swarmaid/swarmaid/internal/geo"
	"github.com/swarmaid/swarmaid/internal/triage"
)

// Map layer names, in output order.
const (
	LayerDamage = "damage"
	LayerTriage = "triage"
	LayerRoute  = "route"
)

// DamageZones marks the incident centre and a secondary zone to its north-east.
func DamageZones(center geo.Point) []geo.Feature {
	return []geo.Feature{
		geo.NewPoint(center, "Damage Zone A", geo.SeveritySevere),
		geo.NewPoint(center.Offset(0.05, 0.05), "Damage Zone B", geo.SeverityModerate),
	}
}

type layerBuilder struct {
	name  string
	build func(ctx context.Context, center geo.Point) ([]geo.Feature, error)
}

// BuildMap geocodes the scenario and assembles the damage, triage and route
// layers concurrently. An unknown location yields an empty collection; a
// failed layer is logged and left out. When triage clusters are placed their
// description is stored in s.TriageSummary.
func (p *Pipeline) BuildMap(ctx context.Context, s *State) geo.FeatureCollection {
	ctx, span := p.tracer.Start(ctx, "pipeline.map")
	defer span.End()

	center, err := p.geocoder.Geocode(ctx, s.Scenario)
	if err != nil {
		p.logger.WarnContext(ctx, "map skipped: scenario not geocoded",
			slog.String("scenario", s.Scenario),
			slog.String("error", err.Error()),
		)
		return geo.EmptyCollection()
	}

	var triageSummary string
	builders := []layerBuilder{
		{LayerDamage, func(_ context.Context, c geo.Point) ([]geo.Feature, error) {
			return DamageZones(c), nil
		}},
		{LayerTriage, func(_ context.Context, c geo.Point) ([]geo.Feature, error) {
			if !p.triageLayer {
				return nil, nil
			}
			buckets := triage.Classify(s.Triage)
			triageSummary = triage.Summary(buckets)
			return triage.Features(c, buckets), nil
		}},
		{LayerRoute, func(ctx context.Context, c geo.Point) ([]geo.Feature, error) {
			return p.routeLayer(ctx, s, c)
		}},
	}

	layers := make([][]geo.Feature, len(builders))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range builders {
		g.Go(func() error {
			fs, err := b.build(gctx, center)
			if err != nil {
				p.metrics.layerFailed(b.name)
				p.logger.WarnContext(gctx, "map layer skipped",
					slog.String("layer", b.name),
					slog.String("error", err.Error()),
				)
				return nil
			}
			layers[i] = fs
			return nil
		})
	}
	_ = g.Wait()
	s.TriageSummary = triageSummary

	fc := geo.Collect(layers...)
	p.metrics.mapBuilt(fc)
	return fc
}

// routeLayer reuses the logistics stage's corridor. It only plans a route
// itself when the logistics stage never reached its route planner.
func (p *Pipeline) routeLayer(ctx context.Context, s *State, center geo.Point) ([]geo.Feature, error) {
	if len(s.RouteFeatures) > 0 {
		return s.RouteFeatures, nil
	}
	if s.routeTried || p.planner == nil {
		return nil, nil
	}
	plan, err := p.planner.Plan(ctx, center)
	if err != nil {
		return nil, err
	}
	return plan.Features(), nil
}
