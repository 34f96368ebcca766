package hazard

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/swarmaid/swarmaid/internal/geo"
)

// Hazard is an event summarized relative to an incident location.
type Hazard struct {
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	DistanceKm int       `json:"distance_km"`
	When       string    `json:"when"`
	Location   geo.Point `json:"location"`
}

// Bullet renders the hazard as a prompt line.
func (h Hazard) Bullet() string {
	return fmt.Sprintf("- %s · %s · ~%d km · %s", h.Title, h.Category, h.DistanceKm, h.When)
}

// Bullets renders hazards one per line.
func Bullets(hs []Hazard) string {
	lines := make([]string, len(hs))
	for i, h := range hs {
		lines[i] = h.Bullet()
	}
	return strings.Join(lines, "\n")
}

// DemoHazards stands in for the feed when EONET cannot be reached.
func DemoHazards() []Hazard {
	return []Hazard{
		{Title: "Severe Storms (demo)", Category: "Severe Storms", DistanceKm: 25, When: "now"},
		{Title: "Flood Event (demo)", Category: "Floods", DistanceKm: 120, When: "12h"},
	}
}

// Nearby returns up to limit events within radiusKm of center, nearest first.
// Each event is placed at its most recent geometry; events whose latest
// geometry is not a [lon, lat] pair are skipped.
func Nearby(events []Event, center geo.Point, radiusKm float64, limit int) []Hazard {
	var found []Hazard
	for _, ev := range events {
		if len(ev.Geometry) == 0 {
			continue
		}
		last := ev.Geometry[len(ev.Geometry)-1]
		loc, ok := pointOf(last.Coordinates)
		if !ok {
			continue
		}
		d := geo.Haversine(center, loc)
		if d > radiusKm {
			continue
		}
		title := ev.Title
		if title == "" {
			title = "Event"
		}
		found = append(found, Hazard{
			Title:      title,
			Category:   categoryLabel(ev.Categories),
			DistanceKm: int(math.Round(d)),
			When:       last.Date,
			Location:   loc,
		})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].DistanceKm < found[j].DistanceKm })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found
}

func categoryLabel(cats []Category) string {
	titles := make([]string, 0, len(cats))
	for _, c := range cats {
		titles = append(titles, c.Title)
	}
	if len(titles) == 0 {
		return "Uncategorized"
	}
	return strings.Join(titles, ", ")
}

func pointOf(raw json.RawMessage) (geo.Point, bool) {
	var coords []float64
	if err := json.Unmarshal(raw, &coords); err != nil || len(coords) < 2 {
		return geo.Point{}, false
	}
	return geo.Point{Lon: coords[0], Lat: coords[1]}, true
}
