// Package risk aggregates risk/amenity signals around a point from the
// in-memory datasets. Every lookup resolves to a documented neutral default
// when its dataset is empty or has nothing nearby; the Outcome value keeps
// "dataset absent" and "no nearby records" distinguishable in logs even
// though both score identically.
package risk

import (
	"github.com/urbansafe/saferoute-cli/internal/dataset"
)

// Outcome classifies how a lookup resolved.
type Outcome int

const (
	// OutcomeHit means nearby records contributed to the result.
	OutcomeHit Outcome = iota
	// OutcomeDatasetEmpty means the dataset was nil or empty and the
	// neutral default was returned.
	OutcomeDatasetEmpty
	// OutcomeNoNearby means the dataset had records but none inside the
	// window, and the neutral default was returned.
	OutcomeNoNearby
)

// String implements fmt.Stringer for log fields.
func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeDatasetEmpty:
		return "dataset_empty"
	case OutcomeNoNearby:
		return "no_nearby"
	}
	return "unknown"
}

// Neutral defaults returned when a dataset cannot answer.
const (
	NeutralLighting   = 5.0
	NeutralPopulation = 5.0
	NeutralTraffic    = 5.0
)

// Radii holds the box-window half-widths in degrees, one per dataset kind.
// The crime window is deliberately tighter than the others; the values are
// kept separate and configurable rather than unified.
type Radii struct {
	CrimeDeg      float64 `yaml:"crime_radius_deg" mapstructure:"crime_radius_deg"`
	LightingDeg   float64 `yaml:"lighting_radius_deg" mapstructure:"lighting_radius_deg"`
	PopulationDeg float64 `yaml:"population_radius_deg" mapstructure:"population_radius_deg"`
}

// DefaultRadii returns the production lookup windows.
func DefaultRadii() Radii {
	return Radii{CrimeDeg: 0.003, LightingDeg: 0.005, PopulationDeg: 0.005}
}

// CrimeExposure counts crime records inside the box window around the point.
// The window is per-axis (Chebyshev), not a circular radius.
func CrimeExposure(lat, lon float64, crimes *dataset.CrimeTable, radius float64) (int, Outcome) {
	if crimes.Empty() {
		return 0, OutcomeDatasetEmpty
	}
	nearby := crimes.Within(lat, lon, radius)
	if len(nearby) == 0 {
		return 0, OutcomeNoNearby
	}
	return len(nearby), OutcomeHit
}

// LightingScore averages the lighting_score column over records inside the
// box window, defaulting to NeutralLighting.
func LightingScore(lat, lon float64, lighting *dataset.LightingTable, radius float64) (float64, Outcome) {
	if lighting.Empty() {
		return NeutralLighting, OutcomeDatasetEmpty
	}
	nearby := lighting.Within(lat, lon, radius)
	if len(nearby) == 0 {
		return NeutralLighting, OutcomeNoNearby
	}
	sum := 0.0
	for _, r := range nearby {
		sum += r.LightingScore
	}
	return sum / float64(len(nearby)), OutcomeHit
}

// PopulationScore returns mean population density scaled by 1/1000, mean
// traffic level scaled by 1/10, and whether a strict majority of nearby
// records are flagged main-road. Defaults are (5.0, 5.0, false).
func PopulationScore(lat, lon float64, population *dataset.PopulationTable, radius float64) (pop, traffic float64, mainRoad bool, out Outcome) {
	if population.Empty() {
		return NeutralPopulation, NeutralTraffic, false, OutcomeDatasetEmpty
	}
	nearby := population.Within(lat, lon, radius)
	if len(nearby) == 0 {
		return NeutralPopulation, NeutralTraffic, false, OutcomeNoNearby
	}

	var densitySum, trafficSum float64
	mainRoadCount := 0
	for _, r := range nearby {
		densitySum += r.PopulationDensity
		trafficSum += r.TrafficLevel
		if r.IsMainRoad {
			mainRoadCount++
		}
	}
	n := float64(len(nearby))
	return densitySum / n / 1000,
		trafficSum / n / 10,
		float64(mainRoadCount)/n > 0.5,
		OutcomeHit
}
