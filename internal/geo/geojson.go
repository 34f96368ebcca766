package geo

import "encoding/json"

// Severity tags drawn on the frontend map.
const (
	SeveritySevere   = "severe"
	SeverityModerate = "moderate"
	SeverityRoute    = "route"
)

// FeatureCollection is a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// EmptyCollection returns a collection whose features marshal as [].
func EmptyCollection() FeatureCollection {
	return FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

// Collect builds a collection from one or more feature layers, preserving order.
func Collect(layers ...[]Feature) FeatureCollection {
	fc := EmptyCollection()
	for _, l := range layers {
		fc.Features = append(fc.Features, l...)
	}
	return fc
}

// Feature is a GeoJSON Feature. Properties always carries name and severity.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Name returns the feature's name property.
func (f Feature) Name() string {
	s, _ := f.Properties["name"].(string)
	return s
}

// Severity returns the feature's severity property.
func (f Feature) Severity() string {
	s, _ := f.Properties["severity"].(string)
	return s
}

// Geometry is a Point or LineString. Coordinates stay raw so route
// geometries from routing engines pass through untouched.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// NewPoint builds a named Point feature.
func NewPoint(p Point, name, severity string) Feature {
	coords, _ := json.Marshal(p.LonLat())
	return Feature{
		Type:       "Feature",
		Geometry:   Geometry{Type: "Point", Coordinates: coords},
		Properties: map[string]any{"name": name, "severity": severity},
	}
}

// NewLineString builds a named LineString feature from an existing geometry.
func NewLineString(g Geometry, name, severity string) Feature {
	if g.Type == "" {
		g.Type = "LineString"
	}
	return Feature{
		Type:       "Feature",
		Geometry:   g,
		Properties: map[string]any{"name": name, "severity": severity},
	}
}

// LineFromPoints builds a LineString geometry through the given points.
func LineFromPoints(points ...Point) Geometry {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = p.LonLat()
	}
	raw, _ := json.Marshal(coords)
	return Geometry{Type: "LineString", Coordinates: raw}
}
