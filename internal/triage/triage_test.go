package triage

import (
	"encoding/json"
	"testing"

	"github.com/swarmaid/swarmaid/internal/geo"
)

func names(bs []Bucket) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Name
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    []string
	}{
		{"burn units", "Eastern districts need Burn Units now.", []string{"Triage: Burns"}},
		{"burn care", "prioritise burn care", []string{"Triage: Burns"}},
		{"no partial word", "the sunburnt crowd and heartburn", []string{"Triage: Central Intake", "Triage: Field Stabilization"}},
		{"ortho", "Multiple FRACTURES? no: fracture reported", []string{"Triage: Ortho/Crush"}},
		{"pediatric and surge", "Children in shelters; ICU overwhelmed", []string{"Triage: Pediatric/Dehydration", "Triage: Casualty Surge"}},
		{"mass casualty", "declare a mass casualty incident", []string{"Triage: Casualty Surge"}},
		{"all four in rule order", "casualties, dehydration, crush injuries, burns", []string{
			"Triage: Burns", "Triage: Ortho/Crush", "Triage: Pediatric/Dehydration", "Triage: Casualty Surge",
		}},
		{"empty", "", []string{"Triage: Central Intake", "Triage: Field Stabilization"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(Classify(tt.summary))
			if len(got) != len(tt.want) {
				t.Fatalf("Classify = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Classify = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestFeatures(t *testing.T) {
	center := geo.Point{Lat: 10, Lon: 20}
	fs := Features(center, Classify("burn"))
	if len(fs) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(fs))
	}
	if fs[0].Name() != "Triage: Burns" || fs[0].Severity() != geo.SeveritySevere {
		t.Errorf("unexpected feature %+v", fs[0].Properties)
	}
	var coords []float64
	if err := json.Unmarshal(fs[0].Geometry.Coordinates, &coords); err != nil {
		t.Fatal(err)
	}
	if geo.Round(coords[0], 2) != 20.03 || geo.Round(coords[1], 2) != 10.01 {
		t.Errorf("coordinates = %v, want [20.03, 10.01]", coords)
	}
}

func TestSummary(t *testing.T) {
	got := Summary(Classify("nothing relevant"))
	want := "Triage clusters placed near incident center based on social-signal summary: " +
		"Triage: Central Intake (moderate), Triage: Field Stabilization (moderate). " +
		"Use these as intake/stabilization anchors; connect to Logistics routes."
	if got != want {
		t.Errorf("Summary =\n%q\nwant\n%q", got, want)
	}
}
