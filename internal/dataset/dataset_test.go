package dataset

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_EmptyAndNil(t *testing.T) {
	var nilTable *CrimeTable
	assert.True(t, nilTable.Empty())
	assert.Zero(t, nilTable.Len())
	assert.Nil(t, nilTable.Within(40, -74, 0.005))

	empty := New([]CrimeRecord{})
	assert.True(t, empty.Empty())
	assert.Nil(t, empty.Within(40, -74, 0.005))
}

func TestTable_BoxWindowIsStrictPerAxis(t *testing.T) {
	table := New([]CrimeRecord{
		{Lat: 40.0029, Lon: -74.0},     // inside on both axes
		{Lat: 40.0035, Lon: -74.0},     // beyond the latitude threshold: excluded
		{Lat: 40.0, Lon: -74.0031},     // outside on longitude only
		{Lat: 40.0029, Lon: -74.0029},  // corner of the box, inside per-axis
		{Lat: 40.0025, Lon: -74.0025},  // outside a circular radius, inside the box
	})

	got := table.Within(40.0, -74.0, 0.003)
	assert.Len(t, got, 3)
}

func TestTable_DropsNonFiniteRecords(t *testing.T) {
	table := New([]CrimeRecord{
		{Lat: math.NaN(), Lon: 0},
		{Lat: 0, Lon: math.Inf(1)},
		{Lat: 40, Lon: -74},
	})
	assert.Equal(t, 1, table.Len())
}

func TestTable_MatchesNaiveScan(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	records := make([]CrimeRecord, 2000)
	for i := range records {
		records[i] = CrimeRecord{
			Lat: 40 + rng.Float64()*0.1,
			Lon: -74 + rng.Float64()*0.1,
		}
	}
	table := New(records)
	require.Equal(t, len(records), table.Len())

	naive := func(lat, lon, radius float64) int {
		n := 0
		for _, r := range records {
			if math.Abs(r.Lat-lat) < radius && math.Abs(r.Lon-lon) < radius {
				n++
			}
		}
		return n
	}

	for range 50 {
		lat := 40 + rng.Float64()*0.1
		lon := -74 + rng.Float64()*0.1
		for _, radius := range []float64{0.003, 0.005, 0.02} {
			assert.Len(t, table.Within(lat, lon, radius), naive(lat, lon, radius))
		}
	}
}

func TestTable_NegativeCoordinatesCrossCellBoundary(t *testing.T) {
	// Records straddling the 0/0 cell corner must still be found.
	table := New([]LightingRecord{
		{Lat: -0.0001, Lon: -0.0001, LightingScore: 3},
		{Lat: 0.0001, Lon: 0.0001, LightingScore: 7},
	})
	got := table.Within(0, 0, 0.005)
	assert.Len(t, got, 2)
}
