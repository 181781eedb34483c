// Package ranker blends safety, distance, and preference bonuses into the
// single scalar used to order candidate routes. The result compares
// candidates within one request; it is not an absolute scale.
package ranker

import (
	"math"

	"github.com/urbansafe/saferoute-cli/internal/scorer"
)

// Config lifts every constant of the composite formula out of the
// algorithm. Weights need not sum to 1; that is the caller's business.
type Config struct {
	// Defaults applied when the request preferences carry no weights.
	SafetyWeight   float64 `yaml:"safety_weight" mapstructure:"safety_weight"`
	DistanceWeight float64 `yaml:"distance_weight" mapstructure:"distance_weight"`

	// MaxDistanceKM is where distance credit reaches zero.
	MaxDistanceKM float64 `yaml:"max_distance_km" mapstructure:"max_distance_km"`

	// Crime penalty mix and scaling.
	CrimeDensityMix   float64 `yaml:"crime_density_mix" mapstructure:"crime_density_mix"`
	MaxCrimeMix       float64 `yaml:"max_crime_mix" mapstructure:"max_crime_mix"`
	CrimePenaltyScale float64 `yaml:"crime_penalty_scale" mapstructure:"crime_penalty_scale"`
	CrimePenaltyDamp  float64 `yaml:"crime_penalty_damp" mapstructure:"crime_penalty_damp"`

	// PreferenceBonus is the per-flag additive bonus scale. Bonuses are
	// uncapped: a route satisfying every set preference can outrank the
	// weighted safety/distance sum.
	PreferenceBonus float64 `yaml:"preference_bonus" mapstructure:"preference_bonus"`
}

// DefaultConfig returns the production ranking constants.
func DefaultConfig() Config {
	return Config{
		SafetyWeight:      0.7,
		DistanceWeight:    0.3,
		MaxDistanceKM:     30,
		CrimeDensityMix:   0.3,
		MaxCrimeMix:       0.7,
		CrimePenaltyScale: 20,
		CrimePenaltyDamp:  0.5,
		PreferenceBonus:   0.15,
	}
}

// Neutral fallbacks for partially populated candidates, so ranking never
// fails on a route whose safety is unknown. An unknown route scores as
// mediocre, which naturally ranks it last among scored alternatives.
const (
	neutralSafety     = 50.0
	neutralDistanceKM = 10.0
	neutralCrime      = 5.0
	neutralMaxCrime   = 5.0
	neutralLighting   = 5.0
	neutralPopulation = 5.0
)

// Ranker computes composite scores under a fixed config.
type Ranker struct {
	cfg Config
}

// New builds a Ranker.
func New(cfg Config) *Ranker {
	return &Ranker{cfg: cfg}
}

// Composite blends the candidate's safety metrics with its distance and the
// request preferences. A nil metrics record falls back to neutral values; a
// non-positive distance falls back to a neutral 10 km.
func (r *Ranker) Composite(distanceKM float64, m *scorer.SafetyMetrics, prefs scorer.Preferences) float64 {
	cfg := r.cfg

	safetyWeight := cfg.SafetyWeight
	if prefs.SafetyWeight != nil {
		safetyWeight = *prefs.SafetyWeight
	}
	distanceWeight := cfg.DistanceWeight
	if prefs.DistanceWeight != nil {
		distanceWeight = *prefs.DistanceWeight
	}

	safety := neutralSafety
	crimeDensity := neutralCrime
	maxCrime := neutralMaxCrime
	lighting := neutralLighting
	population := neutralPopulation
	mainRoadPct := 0.0
	if m != nil {
		safety = m.SafetyScore
		crimeDensity = m.CrimeDensity
		maxCrime = m.MaxCrimeExposure
		lighting = m.LightingScore
		population = m.PopulationScore
		mainRoadPct = m.MainRoadPercentage
	}
	if distanceKM <= 0 {
		distanceKM = neutralDistanceKM
	}

	normalizedSafety := safety / 100
	normalizedDistance := math.Max(0, 1-distanceKM/cfg.MaxDistanceKM)

	crimePenalty := math.Min(1, (crimeDensity*cfg.CrimeDensityMix+maxCrime*cfg.MaxCrimeMix)/cfg.CrimePenaltyScale)
	safetyComponent := normalizedSafety * (1 - crimePenalty*cfg.CrimePenaltyDamp)

	bonus := 0.0
	if prefs.PreferMainRoads {
		bonus += (mainRoadPct / 100) * cfg.PreferenceBonus
	}
	if prefs.PreferWellLit {
		bonus += (lighting / 10) * cfg.PreferenceBonus
	}
	if prefs.PreferPopulated {
		bonus += (population / 10) * cfg.PreferenceBonus
	}

	return safetyComponent*safetyWeight + normalizedDistance*distanceWeight + bonus
}
