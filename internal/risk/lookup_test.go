package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/urbansafe/saferoute-cli/internal/dataset"
)

func TestCrimeExposure_EmptyDataset(t *testing.T) {
	count, out := CrimeExposure(40, -74, nil, 0.003)
	assert.Zero(t, count)
	assert.Equal(t, OutcomeDatasetEmpty, out)

	count, out = CrimeExposure(40, -74, dataset.New([]dataset.CrimeRecord{}), 0.003)
	assert.Zero(t, count)
	assert.Equal(t, OutcomeDatasetEmpty, out)
}

func TestCrimeExposure_CountsBoxWindow(t *testing.T) {
	crimes := dataset.New([]dataset.CrimeRecord{
		{Lat: 40.001, Lon: -74.001},
		{Lat: 40.002, Lon: -74.002},
		{Lat: 40.1, Lon: -74.1}, // far away
	})

	count, out := CrimeExposure(40, -74, crimes, 0.003)
	assert.Equal(t, 2, count)
	assert.Equal(t, OutcomeHit, out)

	count, out = CrimeExposure(45, -70, crimes, 0.003)
	assert.Zero(t, count)
	assert.Equal(t, OutcomeNoNearby, out)
}

func TestLightingScore_Defaults(t *testing.T) {
	score, out := LightingScore(40, -74, nil, 0.005)
	assert.Equal(t, NeutralLighting, score)
	assert.Equal(t, OutcomeDatasetEmpty, out)

	lighting := dataset.New([]dataset.LightingRecord{{Lat: 50, Lon: 0, LightingScore: 9}})
	score, out = LightingScore(40, -74, lighting, 0.005)
	assert.Equal(t, NeutralLighting, score)
	assert.Equal(t, OutcomeNoNearby, out)
}

func TestLightingScore_Mean(t *testing.T) {
	lighting := dataset.New([]dataset.LightingRecord{
		{Lat: 40.001, Lon: -74.001, LightingScore: 8},
		{Lat: 40.002, Lon: -74.002, LightingScore: 4},
	})
	score, out := LightingScore(40, -74, lighting, 0.005)
	assert.InDelta(t, 6.0, score, 1e-9)
	assert.Equal(t, OutcomeHit, out)
}

func TestPopulationScore_Defaults(t *testing.T) {
	pop, traffic, mainRoad, out := PopulationScore(40, -74, nil, 0.005)
	assert.Equal(t, NeutralPopulation, pop)
	assert.Equal(t, NeutralTraffic, traffic)
	assert.False(t, mainRoad)
	assert.Equal(t, OutcomeDatasetEmpty, out)
}

func TestPopulationScore_Aggregates(t *testing.T) {
	population := dataset.New([]dataset.PopulationRecord{
		{Lat: 40.001, Lon: -74.001, PopulationDensity: 4000, TrafficLevel: 60, IsMainRoad: true},
		{Lat: 40.002, Lon: -74.002, PopulationDensity: 2000, TrafficLevel: 40, IsMainRoad: true},
		{Lat: 40.003, Lon: -74.003, PopulationDensity: 6000, TrafficLevel: 80, IsMainRoad: false},
	})

	pop, traffic, mainRoad, out := PopulationScore(40, -74, population, 0.005)
	assert.InDelta(t, 4.0, pop, 1e-9)     // mean 4000 / 1000
	assert.InDelta(t, 6.0, traffic, 1e-9) // mean 60 / 10
	assert.True(t, mainRoad)              // 2 of 3
	assert.Equal(t, OutcomeHit, out)
}

func TestPopulationScore_MainRoadNeedsStrictMajority(t *testing.T) {
	population := dataset.New([]dataset.PopulationRecord{
		{Lat: 40.001, Lon: -74.001, IsMainRoad: true},
		{Lat: 40.002, Lon: -74.002, IsMainRoad: false},
	})
	_, _, mainRoad, _ := PopulationScore(40, -74, population, 0.005)
	assert.False(t, mainRoad) // exactly half is not a majority
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "hit", OutcomeHit.String())
	assert.Equal(t, "dataset_empty", OutcomeDatasetEmpty.String())
	assert.Equal(t, "no_nearby", OutcomeNoNearby.String())
}

func TestDefaultRadii(t *testing.T) {
	r := DefaultRadii()
	assert.Equal(t, 0.003, r.CrimeDeg)
	assert.Equal(t, 0.005, r.LightingDeg)
	assert.Equal(t, 0.005, r.PopulationDeg)
}
