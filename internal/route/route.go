// Package route defines the candidate route types produced by the provider
// adapter and the fingerprint used to deduplicate them.
package route

import (
	"github.com/urbansafe/saferoute-cli/internal/geo"
)

// Geometry is an ordered polyline from origin to destination.
// Order is significant and must never be reversed.
type Geometry []geo.Coordinate

// Step is one turn-by-turn instruction. Number is 1-based and contiguous
// across all provider legs.
type Step struct {
	Number       int     `json:"number"`
	Instruction  string  `json:"instruction"`
	DistanceM    float64 `json:"distance"`
	DistanceText string  `json:"distance_text"`
}

// Candidate is one proposed path between origin and destination, as
// normalized from a single provider response entry. Immutable once built.
type Candidate struct {
	Geometry    Geometry        `json:"route"`
	DistanceKM  float64         `json:"distance_km"`
	DurationMin float64         `json:"duration_min"`
	Waypoint    *geo.Coordinate `json:"waypoint,omitempty"`
	Steps       []Step          `json:"steps"`
}

// Dedupe drops candidates whose geometry fingerprint was already seen,
// keeping the first occurrence and preserving order. Candidates too short
// to fingerprint are dropped outright.
func Dedupe(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		fp, ok := Fingerprint(c.Geometry)
		if !ok {
			continue
		}
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, c)
	}
	return out
}
