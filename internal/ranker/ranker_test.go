package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/urbansafe/saferoute-cli/internal/scorer"
)

func metrics(safety float64) *scorer.SafetyMetrics {
	return &scorer.SafetyMetrics{
		SafetyScore:        safety,
		CrimeDensity:       2,
		MaxCrimeExposure:   3,
		LightingScore:      6,
		PopulationScore:    4,
		MainRoadPercentage: 40,
	}
}

func TestComposite_MonotonicInSafety(t *testing.T) {
	r := New(DefaultConfig())
	prev := -1.0
	for _, safety := range []float64{0, 25, 50, 75, 100} {
		got := r.Composite(10, metrics(safety), scorer.Preferences{})
		assert.Greater(t, got, prev, "safety %v", safety)
		prev = got
	}
}

func TestComposite_DistanceCredit(t *testing.T) {
	r := New(DefaultConfig())
	m := metrics(80)

	short := r.Composite(5, m, scorer.Preferences{})
	long := r.Composite(25, m, scorer.Preferences{})
	assert.Greater(t, short, long)

	// At and beyond 30 km the distance credit is zero, so scores match.
	at := r.Composite(30, m, scorer.Preferences{})
	beyond := r.Composite(90, m, scorer.Preferences{})
	assert.InDelta(t, at, beyond, 1e-12)
}

func TestComposite_PreferenceBonusStrictlyHigher(t *testing.T) {
	r := New(DefaultConfig())
	m := &scorer.SafetyMetrics{SafetyScore: 70, LightingScore: 8}

	plain := r.Composite(10, m, scorer.Preferences{})
	lit := r.Composite(10, m, scorer.Preferences{PreferWellLit: true})
	assert.Greater(t, lit, plain)
	assert.InDelta(t, (8.0/10)*0.15, lit-plain, 1e-12)
}

func TestComposite_NilMetricsUsesNeutralDefaults(t *testing.T) {
	r := New(DefaultConfig())

	// Must not panic and must produce a mid-range score.
	got := r.Composite(0, nil, scorer.Preferences{})

	// safety 50 -> 0.5; crime penalty min(1, (5*0.3+5*0.7)/20)=0.25;
	// component 0.5*(1-0.125)=0.4375; distance 10 -> credit 2/3.
	want := 0.4375*0.7 + (2.0/3.0)*0.3
	assert.InDelta(t, want, got, 1e-9)
}

func TestComposite_ExplicitWeightsOverrideDefaults(t *testing.T) {
	r := New(DefaultConfig())
	m := metrics(100)
	one := 1.0
	zero := 0.0

	safetyOnly := r.Composite(10, m, scorer.Preferences{SafetyWeight: &one, DistanceWeight: &zero})
	distanceOnly := r.Composite(10, m, scorer.Preferences{SafetyWeight: &zero, DistanceWeight: &one})

	// penalty = min(1, (2*0.3+3*0.7)/20) = 0.135
	assert.InDelta(t, 1.0*(1-0.135*0.5), safetyOnly, 1e-9)
	assert.InDelta(t, 1-10.0/30, distanceOnly, 1e-9)
}

func TestComposite_CrimePenaltyCapped(t *testing.T) {
	r := New(DefaultConfig())
	extreme := &scorer.SafetyMetrics{SafetyScore: 100, CrimeDensity: 1000, MaxCrimeExposure: 1000}
	mild := &scorer.SafetyMetrics{SafetyScore: 100, CrimeDensity: 20, MaxCrimeExposure: 25}

	// Both hit the penalty cap of 1, so the safety component is identical.
	assert.InDelta(t,
		r.Composite(10, extreme, scorer.Preferences{}),
		r.Composite(10, mild, scorer.Preferences{}),
		1e-12)
}
