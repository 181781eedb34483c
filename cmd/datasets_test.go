package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportDataset_CrimeCSV(t *testing.T) {
	st := newTestStore(t)
	path := writeTempCSV(t, "crime.csv",
		"latitude,longitude,category\n40.71,-74.0,theft\n40.72,-74.01,assault\n")

	n, err := importDataset(context.Background(), st, "crime", path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	counts, err := st.CountDatasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Crime)
}

func TestImportDataset_ReplacesPrevious(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := writeTempCSV(t, "first.csv",
		"latitude,longitude,lighting_score\n40.71,-74.0,7\n40.72,-74.01,3\n40.73,-74.02,5\n")
	second := writeTempCSV(t, "second.csv",
		"latitude,longitude,lighting_score\n40.71,-74.0,8\n")

	_, err := importDataset(ctx, st, "lighting", first)
	require.NoError(t, err)
	n, err := importDataset(ctx, st, "lighting", second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	counts, err := st.CountDatasets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Lighting)
}

func TestImportDataset_PopulationCSV(t *testing.T) {
	st := newTestStore(t)
	path := writeTempCSV(t, "population.csv",
		"latitude,longitude,population_density,traffic_level,is_main_road\n40.71,-74.0,12000,6,true\n")

	n, err := importDataset(context.Background(), st, "population", path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := st.LoadPopulation(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].IsMainRoad)
}

func TestImportDataset_UnknownKind(t *testing.T) {
	st := newTestStore(t)

	_, err := importDataset(context.Background(), st, "weather", "anything.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dataset kind")
}

func TestImportDataset_UnsupportedExtension(t *testing.T) {
	st := newTestStore(t)

	_, err := importDataset(context.Background(), st, "crime", "crime.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file extension")
}

func TestImportDataset_MissingFile(t *testing.T) {
	st := newTestStore(t)

	_, err := importDataset(context.Background(), st, "crime", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
