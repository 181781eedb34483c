package scorer

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Preferences are the per-request routing preferences. All fields are
// optional; nil weights fall back to the ranker defaults.
type Preferences struct {
	PreferWellLit   bool     `json:"prefer_well_lit,omitempty"`
	PreferPopulated bool     `json:"prefer_populated,omitempty"`
	PreferMainRoads bool     `json:"prefer_main_roads,omitempty"`
	SafetyWeight    *float64 `json:"safety_weight,omitempty"`
	DistanceWeight  *float64 `json:"distance_weight,omitempty"`
}

// Weights collects every tunable of the safety model in one place so that
// alternative weighting schemes can be swapped in without touching the
// scoring algorithm.
type Weights struct {
	// SampleTarget caps how many route points are sampled.
	SampleTarget int `yaml:"sample_target"`
	// HotspotThreshold is the crime count above which a sampled point
	// counts as a hotspot.
	HotspotThreshold int `yaml:"hotspot_threshold"`

	// Penalty terms, each min(Cap, value^Exponent * Scale).
	BaseCrimeCap      float64 `yaml:"base_crime_cap"`
	BaseCrimeExponent float64 `yaml:"base_crime_exponent"`
	BaseCrimeScale    float64 `yaml:"base_crime_scale"`
	MaxCrimeCap       float64 `yaml:"max_crime_cap"`
	MaxCrimeExponent  float64 `yaml:"max_crime_exponent"`
	MaxCrimeScale     float64 `yaml:"max_crime_scale"`
	HotspotCap        float64 `yaml:"hotspot_cap"`
	HotspotScale      float64 `yaml:"hotspot_scale"`

	// Preference multiplier weights, picked by whether the matching
	// preference flag is set.
	LightingPreferred   float64 `yaml:"lighting_preferred"`
	LightingNeutral     float64 `yaml:"lighting_neutral"`
	PopulationPreferred float64 `yaml:"population_preferred"`
	PopulationNeutral   float64 `yaml:"population_neutral"`
	TrafficPreferred    float64 `yaml:"traffic_preferred"`
	TrafficNeutral      float64 `yaml:"traffic_neutral"`
	MainRoadPreferred   float64 `yaml:"main_road_preferred"`
	MainRoadNeutral     float64 `yaml:"main_road_neutral"`
}

// DefaultWeights returns the production safety model.
func DefaultWeights() Weights {
	return Weights{
		SampleTarget:     50,
		HotspotThreshold: 3,

		BaseCrimeCap:      40,
		BaseCrimeExponent: 1.2,
		BaseCrimeScale:    5,
		MaxCrimeCap:       40,
		MaxCrimeExponent:  1.4,
		MaxCrimeScale:     7,
		HotspotCap:        30,
		HotspotScale:      0.5,

		LightingPreferred:   2.5,
		LightingNeutral:     0.8,
		PopulationPreferred: 2.0,
		PopulationNeutral:   0.6,
		TrafficPreferred:    1.5,
		TrafficNeutral:      0.4,
		MainRoadPreferred:   2.5,
		MainRoadNeutral:     0.7,
	}
}

// LoadWeights reads a YAML weights profile, layered over the defaults so a
// profile only needs to name the values it changes. The file has a top-level
// "weights" key.
func LoadWeights(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, eris.Wrapf(err, "scorer: read weights profile %s", path)
	}

	wrapper := struct {
		Weights Weights `yaml:"weights"`
	}{Weights: DefaultWeights()}

	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Weights{}, eris.Wrapf(err, "scorer: parse weights profile %s", path)
	}
	return wrapper.Weights, nil
}
