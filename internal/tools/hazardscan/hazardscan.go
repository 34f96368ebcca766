// Package hazardscan implements the Data Analyst's EONET hazard scan tool.
package hazardscan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/swarmaid/swarmaid/internal/geo"
	"github.com/swarmaid/swarmaid/internal/hazard"
	"github.com/swarmaid/swarmaid/internal/tools"
)

// Config bounds which events are reported.
type Config struct {
	RadiusKm  float64 // 0 = 1000 km
	MaxEvents int     // 0 = 10
}

const (
	defaultRadiusKm  = 1000
	defaultMaxEvents = 10
)

// Tool geocodes the scenario and lists open natural hazards around it.
type Tool struct {
	geocoder geo.Geocoder
	events   hazard.Source
	config   Config
	logger   *slog.Logger
}

var _ tools.Tool = (*Tool)(nil)

// NewTool creates the hazard scan tool.
func NewTool(geocoder geo.Geocoder, events hazard.Source, cfg Config, logger *slog.Logger) *Tool {
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = defaultRadiusKm
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = defaultMaxEvents
	}
	return &Tool{geocoder: geocoder, events: events, config: cfg, logger: logger}
}

func (t *Tool) Name() string { return "EONET Hazard Scan" }
func (t *Tool) Description() string {
	return "Scan NASA EONET for active natural hazards near a place and summarize implications."
}

// Execute returns a brief for the analyst model, or a direct answer when the
// place cannot be located or nothing is active nearby.
func (t *Tool) Execute(ctx context.Context, query string) (*tools.Result, error) {
	center, err := t.geocoder.Geocode(ctx, query)
	if err != nil {
		msg := fmt.Sprintf("Could not geocode location from: %s. Provide a clearer place name.", query)
		if errors.Is(err, geo.ErrNotFound) {
			return tools.Answer(msg), nil
		}
		t.logger.WarnContext(ctx, "geocoding failed", slog.String("query", query), slog.String("error", err.Error()))
		return tools.Fallback(msg, true), nil
	}

	events, err := t.events.OpenEvents(ctx)
	if err != nil {
		t.logger.WarnContext(ctx, "hazard feed unavailable, using demo hazards", slog.String("error", err.Error()))
		res := tools.Fallback(fmt.Sprintf(
			"(EONET unavailable) Location=(%.4f,%.4f). Given these demo hazards, analyze likely damage zones and vulnerable districts:\n%s",
			center.Lat, center.Lon, hazard.Bullets(hazard.DemoHazards())), false)
		res.Metadata = map[string]any{"center": center, "demo": true}
		return res, nil
	}

	nearby := hazard.Nearby(events, center, t.config.RadiusKm, t.config.MaxEvents)
	if len(nearby) == 0 {
		return tools.Answer(fmt.Sprintf(
			"No active EONET hazards within ~%g km of the scenario. Proceed with local reports, social signals, and civil defense bulletins.",
			t.config.RadiusKm)), nil
	}

	res := tools.Brief(fmt.Sprintf(
		"Scenario location: %s. Recent nearby hazards:\n%s\n\n"+
			"Based on these events, write a concise analysis of likely damage zones, infrastructure risks, "+
			"and which districts need the fastest assessment. Be practical and location-aware.",
		center, hazard.Bullets(nearby)))
	res.Metadata = map[string]any{"center": center, "hazards": nearby}
	return res, nil
}
