package routeplan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/swarmaid/swarmaid/internal/geo"
	"github.com/swarmaid/swarmaid/internal/routing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeGeocoder struct {
	point geo.Point
	err   error
}

func (f fakeGeocoder) Geocode(context.Context, string) (geo.Point, error) { return f.point, f.err }

type fakeEngine struct {
	route *routing.Route
	err   error
}

func (f fakeEngine) Name() string { return "osrm" }
func (f fakeEngine) Route(context.Context, geo.Point, geo.Point) (*routing.Route, error) {
	return f.route, f.err
}

func TestExecuteSuccess(t *testing.T) {
	route := &routing.Route{Engine: "osrm", DistanceKm: 41.2, DurationMin: 49.2, Geometry: geo.LineFromPoints(geo.Point{}, geo.Point{Lat: 1, Lon: 1})}
	planner := routing.NewPlanner(discardLogger(), fakeEngine{route: route})
	tool := NewTool(fakeGeocoder{point: geo.Point{Lat: 10, Lon: 20}}, planner, discardLogger())

	res, err := tool.Execute(context.Background(), "Test Town")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Plan safe supply routes for 'Test Town'. Primary corridor via osrm: ~41.2 km, ~49.2 min. " +
		"Staging at (9.8500, 19.8500), destination at (10.1000, 20.1000)."
	if res.Direct || !strings.HasPrefix(res.Output, want) {
		t.Errorf("got %q", res.Output)
	}
	if len(res.Features) != 3 || res.Features[0].Name() != "Primary Corridor (osrm)" {
		t.Errorf("unexpected features %+v", res.Features)
	}
}

func TestExecuteRoutingUnavailable(t *testing.T) {
	planner := routing.NewPlanner(discardLogger(), fakeEngine{err: errors.New("OSRM routing failed: 502")})
	tool := NewTool(fakeGeocoder{point: geo.Point{Lat: 10, Lon: 20}}, planner, discardLogger())

	res, err := tool.Execute(context.Background(), "Test Town")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "⚠️ Routing temporarily unavailable (OSRM routing failed: 502). Interim guidance: move via secondary arterials " +
		"from (9.8500, 19.8500) toward (10.1000, 20.1000), avoid bridge choke-points, set refuel/relay every 8–12 km."
	if !res.Direct || res.Output != want {
		t.Errorf("got %q", res.Output)
	}
	if len(res.Features) != 0 {
		t.Error("unavailable routing should produce no features")
	}
	if !res.Degraded {
		t.Error("routing guidance should be marked degraded")
	}
}

func TestExecuteGeocodeMiss(t *testing.T) {
	tool := NewTool(fakeGeocoder{err: geo.ErrNotFound}, routing.NewPlanner(discardLogger()), discardLogger())
	res, err := tool.Execute(context.Background(), "America")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Direct || !strings.HasPrefix(res.Output, "❌ Could not geocode a precise point for: 'America'.") {
		t.Errorf("got %q", res.Output)
	}
	if res.Degraded {
		t.Error("a definitive geocode miss is not degraded")
	}
}
