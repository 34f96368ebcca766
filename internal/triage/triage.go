// Package triage turns a medical-needs summary into triage cluster markers
// placed around an incident centre.
package triage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/swarmaid/swarmaid/internal/geo"
)

// MaxClusters caps how many clusters are placed on the map.
const MaxClusters = 4

// Bucket is a triage cluster and its offset from the incident centre.
type Bucket struct {
	Name     string
	Severity string
	DLon     float64
	DLat     float64
}

type rule struct {
	pattern *regexp.Regexp
	bucket  Bucket
}

var rules = []rule{
	{regexp.MustCompile(`\bburn(s| units| care)?\b`), Bucket{"Triage: Burns", geo.SeveritySevere, +0.03, +0.01}},
	{regexp.MustCompile(`\b(crush|fracture|orthopedic)\b`), Bucket{"Triage: Ortho/Crush", geo.SeverityModerate, -0.04, +0.02}},
	{regexp.MustCompile(`\b(dehydration|children|pediatric)\b`), Bucket{"Triage: Pediatric/Dehydration", geo.SeverityModerate, +0.02, -0.03}},
	{regexp.MustCompile(`\b(overwhelmed|icu|casualties|mass casualty)\b`), Bucket{"Triage: Casualty Surge", geo.SeveritySevere, -0.03, -0.02}},
}

var defaults = []Bucket{
	{"Triage: Central Intake", geo.SeverityModerate, +0.02, +0.02},
	{"Triage: Field Stabilization", geo.SeverityModerate, -0.03, -0.01},
}

// Classify matches the summary against the triage rules in fixed order.
// When nothing matches, the two general-purpose clusters are returned.
func Classify(summary string) []Bucket {
	text := strings.ToLower(summary)
	var out []Bucket
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			out = append(out, r.bucket)
		}
	}
	if len(out) == 0 {
		out = append(out, defaults...)
	}
	if len(out) > MaxClusters {
		out = out[:MaxClusters]
	}
	return out
}

// Features places one Point per bucket at its offset from center.
func Features(center geo.Point, buckets []Bucket) []geo.Feature {
	out := make([]geo.Feature, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, geo.NewPoint(center.Offset(b.DLat, b.DLon), b.Name, b.Severity))
	}
	return out
}

// Summary describes the placed clusters for the run log.
func Summary(buckets []Bucket) string {
	parts := make([]string, len(buckets))
	for i, b := range buckets {
		parts[i] = fmt.Sprintf("%s (%s)", b.Name, b.Severity)
	}
	return "Triage clusters placed near incident center based on social-signal summary: " +
		strings.Join(parts, ", ") +
		". Use these as intake/stabilization anchors; connect to Logistics routes."
}
