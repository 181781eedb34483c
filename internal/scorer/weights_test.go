package scorer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	assert.Equal(t, 50, w.SampleTarget)
	assert.Equal(t, 3, w.HotspotThreshold)
	assert.Equal(t, 40.0, w.BaseCrimeCap)
	assert.Equal(t, 1.2, w.BaseCrimeExponent)
	assert.Equal(t, 2.5, w.LightingPreferred)
	assert.Equal(t, 0.8, w.LightingNeutral)
	assert.Equal(t, 0.7, w.MainRoadNeutral)
}

func TestLoadWeights_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"weights:\n  base_crime_cap: 55\n  lighting_preferred: 3.0\n"), 0o644))

	w, err := LoadWeights(path)
	require.NoError(t, err)
	assert.Equal(t, 55.0, w.BaseCrimeCap)
	assert.Equal(t, 3.0, w.LightingPreferred)
	// Untouched values keep their defaults.
	assert.Equal(t, 40.0, w.MaxCrimeCap)
	assert.Equal(t, 50, w.SampleTarget)
}

func TestLoadWeights_MissingFile(t *testing.T) {
	_, err := LoadWeights(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadWeights_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weights: ["), 0o644))
	_, err := LoadWeights(path)
	assert.Error(t, err)
}
