package geo

import (
	"encoding/json"
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	lahore := Point{Lat: 31.5204, Lon: 74.3587}
	karachi := Point{Lat: 24.8607, Lon: 67.0011}
	tokyo := Point{Lat: 35.6762, Lon: 139.6503}

	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{"same point", lahore, lahore, 0, 0},
		{"one degree of latitude", Point{0, 0}, Point{1, 0}, 111.19, 0.01},
		{"quarter meridian", Point{0, 0}, Point{90, 0}, math.Pi * EarthRadiusKm / 2, 1e-6},
		{"antipodes", Point{0, 0}, Point{0, 180}, math.Pi * EarthRadiusKm, 1e-6},
		{"lahore to karachi", lahore, karachi, 1030, 15},
		{"lahore to tokyo", lahore, tokyo, 5960, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Haversine = %.3f, want %.3f ± %.3f", got, tt.want, tt.tol)
			}
		})
	}
}

func TestHaversineSymmetryAndIdentity(t *testing.T) {
	points := []Point{
		{0, 0}, {31.52, 74.36}, {-33.87, 151.21}, {64.13, -21.9}, {-89.9, 10}, {45, -179.99}, {45, 179.99},
	}
	for _, a := range points {
		if d := Haversine(a, a); d != 0 {
			t.Errorf("Haversine(%v, %v) = %v, want 0", a, a, d)
		}
		for _, b := range points {
			ab, ba := Haversine(a, b), Haversine(b, a)
			if math.Abs(ab-ba) > 1e-9 {
				t.Errorf("asymmetric: d(%v,%v)=%v d(%v,%v)=%v", a, b, ab, b, a, ba)
			}
			if ab < 0 || ab > math.Pi*EarthRadiusKm+1e-6 {
				t.Errorf("distance %v out of range", ab)
			}
		}
	}
}

func TestOffsetAndRound(t *testing.T) {
	p := Point{Lat: 10, Lon: 20}.Offset(-0.15, 0.1)
	if Round(p.Lat, 2) != 9.85 || Round(p.Lon, 2) != 20.1 {
		t.Errorf("unexpected offset %v", p)
	}
	if Round(12.345, 1) != 12.3 || Round(12.36, 1) != 12.4 {
		t.Error("unexpected rounding")
	}
	if got := (Point{Lat: 1.23456, Lon: -7}).String(); got != "(1.2346, -7.0000)" {
		t.Errorf("String = %q", got)
	}
}

func TestFeatureJSON(t *testing.T) {
	fc := Collect(
		[]Feature{NewPoint(Point{Lat: 31.5, Lon: 74.3}, "Damage Zone A", SeveritySevere)},
		nil,
		[]Feature{NewLineString(LineFromPoints(Point{1, 2}, Point{3, 4}), "Primary Corridor (osrm)", SeverityRoute)},
	)
	data, err := json.Marshal(fc)
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != "FeatureCollection" || len(decoded.Features) != 2 {
		t.Fatalf("unexpected collection: %s", data)
	}
	if string(decoded.Features[0].Geometry.Coordinates) != "[74.3,31.5]" {
		t.Errorf("point coordinates = %s, want [lon,lat]", decoded.Features[0].Geometry.Coordinates)
	}
	if decoded.Features[1].Geometry.Type != "LineString" || string(decoded.Features[1].Geometry.Coordinates) != "[[2,1],[4,3]]" {
		t.Errorf("line = %s %s", decoded.Features[1].Geometry.Type, decoded.Features[1].Geometry.Coordinates)
	}
	if decoded.Features[0].Properties["severity"] != "severe" {
		t.Errorf("severity = %v", decoded.Features[0].Properties["severity"])
	}
}

func TestEmptyCollectionMarshalsArray(t *testing.T) {
	data, _ := json.Marshal(EmptyCollection())
	if string(data) != `{"type":"FeatureCollection","features":[]}` {
		t.Errorf("got %s", data)
	}
}
