// Package scorer turns a route geometry into a bounded 0-100 safety score
// by sampling the route and aggregating crime, lighting, and population
// signals around each sample.
package scorer

import (
	"math"

	"go.uber.org/zap"

	"github.com/urbansafe/saferoute-cli/internal/dataset"
	"github.com/urbansafe/saferoute-cli/internal/risk"
	"github.com/urbansafe/saferoute-cli/internal/route"
)

// SafetyMetrics is the derived, immutable safety record for one route.
// SafetyScore is always within [0, 100]; every field is rounded to two
// decimal places.
type SafetyMetrics struct {
	SafetyScore            float64 `json:"safety_score"`
	CrimeDensity           float64 `json:"crime_density"`
	MaxCrimeExposure       float64 `json:"max_crime_exposure"`
	CrimeHotspotPercentage float64 `json:"crime_hotspot_percentage"`
	LightingScore          float64 `json:"lighting_score"`
	PopulationScore        float64 `json:"population_score"`
	TrafficScore           float64 `json:"traffic_score"`
	MainRoadPercentage     float64 `json:"main_road_percentage"`
	CrimeDensityScore      float64 `json:"crime_density_score"`
}

// Scorer scores routes against a fixed set of datasets. Safe for concurrent
// use; the tables are read-only.
type Scorer struct {
	weights    Weights
	radii      risk.Radii
	crimes     *dataset.CrimeTable
	lighting   *dataset.LightingTable
	population *dataset.PopulationTable
}

// New builds a Scorer. Nil tables are valid and score as empty datasets.
func New(weights Weights, radii risk.Radii, crimes *dataset.CrimeTable, lighting *dataset.LightingTable, population *dataset.PopulationTable) *Scorer {
	return &Scorer{
		weights:    weights,
		radii:      radii,
		crimes:     crimes,
		lighting:   lighting,
		population: population,
	}
}

// Score samples the geometry and returns its safety metrics, or nil when the
// geometry has fewer than 2 points ("safety unknown"). Callers must treat a
// nil result as last-resort, not as an error.
func (s *Scorer) Score(g route.Geometry, prefs Preferences) *SafetyMetrics {
	if len(g) < 2 {
		return nil
	}

	w := s.weights

	// Downsample to at most ~SampleTarget points, preserving order.
	stride := max(1, len(g)/w.SampleTarget)

	var (
		totalCrime      int
		maxCrime        int
		hotspotCount    int
		totalLighting   float64
		totalPopulation float64
		totalTraffic    float64
		mainRoadCount   int
		n               int
		emptyLookups    int
	)

	for i := 0; i < len(g); i += stride {
		p := g[i]
		n++

		crimeCount, crimeOut := risk.CrimeExposure(p.Lat, p.Lon, s.crimes, s.radii.CrimeDeg)
		totalCrime += crimeCount
		maxCrime = max(maxCrime, crimeCount)
		if crimeCount > w.HotspotThreshold {
			hotspotCount++
		}

		light, lightOut := risk.LightingScore(p.Lat, p.Lon, s.lighting, s.radii.LightingDeg)
		totalLighting += light

		pop, traffic, mainRoad, popOut := risk.PopulationScore(p.Lat, p.Lon, s.population, s.radii.PopulationDeg)
		totalPopulation += pop
		totalTraffic += traffic
		if mainRoad {
			mainRoadCount++
		}

		for _, out := range []risk.Outcome{crimeOut, lightOut, popOut} {
			if out == risk.OutcomeDatasetEmpty {
				emptyLookups++
			}
		}
	}

	fn := float64(n)
	avgCrime := float64(totalCrime) / fn
	avgLighting := totalLighting / fn
	avgPopulation := totalPopulation / fn
	avgTraffic := totalTraffic / fn
	mainRoadPct := float64(mainRoadCount) / fn * 100
	hotspotPct := float64(hotspotCount) / fn * 100

	// Nonlinear crime penalties, each independently capped.
	basePenalty := math.Min(w.BaseCrimeCap, math.Pow(avgCrime, w.BaseCrimeExponent)*w.BaseCrimeScale)
	maxPenalty := math.Min(w.MaxCrimeCap, math.Pow(float64(maxCrime), w.MaxCrimeExponent)*w.MaxCrimeScale)
	hotspotPenalty := math.Min(w.HotspotCap, hotspotPct*w.HotspotScale)

	baseSafety := math.Max(0, 100-(basePenalty+maxPenalty+hotspotPenalty))

	// Preference multipliers. The main-road term uses the percentage over
	// 100 where the others use a 0-10 average over 10; the asymmetry is
	// inherited from the reference model and kept deliberately.
	lightingMul := 1 + (avgLighting/10)*pick(prefs.PreferWellLit, w.LightingPreferred, w.LightingNeutral)
	populationMul := 1 + (avgPopulation/10)*pick(prefs.PreferPopulated, w.PopulationPreferred, w.PopulationNeutral)
	trafficMul := 1 + (avgTraffic/10)*pick(prefs.PreferPopulated, w.TrafficPreferred, w.TrafficNeutral)
	mainRoadMul := 1 + (mainRoadPct/100)*pick(prefs.PreferMainRoads, w.MainRoadPreferred, w.MainRoadNeutral)

	combined := (lightingMul + populationMul + trafficMul + mainRoadMul) / 4

	finalSafety := math.Min(100, math.Max(0, baseSafety*combined))

	if emptyLookups > 0 {
		zap.L().Debug("scorer: some lookups resolved against empty datasets",
			zap.Int("samples", n),
			zap.Int("empty_lookups", emptyLookups),
		)
	}

	return &SafetyMetrics{
		SafetyScore:            round2(finalSafety),
		CrimeDensity:           round2(avgCrime),
		MaxCrimeExposure:       round2(float64(maxCrime)),
		CrimeHotspotPercentage: round2(hotspotPct),
		LightingScore:          round2(avgLighting),
		PopulationScore:        round2(avgPopulation),
		TrafficScore:           round2(avgTraffic),
		MainRoadPercentage:     round2(mainRoadPct),
		CrimeDensityScore:      round2(100 - math.Min(100, avgCrime*10)),
	}
}

func pick(preferred bool, yes, no float64) float64 {
	if preferred {
		return yes
	}
	return no
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
