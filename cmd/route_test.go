package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbansafe/saferoute-cli/internal/geo"
	"github.com/urbansafe/saferoute-cli/internal/planner"
	"github.com/urbansafe/saferoute-cli/internal/scorer"
)

func resetRouteFlags() {
	routeFlags.from = ""
	routeFlags.to = ""
	routeFlags.via = ""
	routeFlags.preferLit = false
	routeFlags.preferPopulated = false
	routeFlags.preferMainRoads = false
	routeFlags.safetyWeight = -1
	routeFlags.distanceWeight = -1
	routeFlags.jsonOut = false
}

func TestBuildRequest(t *testing.T) {
	resetRouteFlags()
	routeFlags.from = "40.7128,-74.0060"
	routeFlags.to = "40.7580,-73.9855"
	routeFlags.preferLit = true

	req, err := buildRequest()
	require.NoError(t, err)

	assert.Equal(t, geo.Coordinate{Lat: 40.7128, Lon: -74.0060}, req.Start)
	assert.Equal(t, geo.Coordinate{Lat: 40.7580, Lon: -73.9855}, req.End)
	assert.Nil(t, req.Via)
	assert.True(t, req.Preferences.PreferWellLit)
	assert.Nil(t, req.Preferences.SafetyWeight)
	assert.Nil(t, req.Preferences.DistanceWeight)
}

func TestBuildRequest_WithViaAndWeights(t *testing.T) {
	resetRouteFlags()
	routeFlags.from = "40.0,-74.0"
	routeFlags.to = "40.1,-74.1"
	routeFlags.via = "40.05,-74.05"
	routeFlags.safetyWeight = 0.9
	routeFlags.distanceWeight = 0.1

	req, err := buildRequest()
	require.NoError(t, err)

	require.NotNil(t, req.Via)
	assert.Equal(t, geo.Coordinate{Lat: 40.05, Lon: -74.05}, *req.Via)
	require.NotNil(t, req.Preferences.SafetyWeight)
	assert.InDelta(t, 0.9, *req.Preferences.SafetyWeight, 1e-9)
	require.NotNil(t, req.Preferences.DistanceWeight)
	assert.InDelta(t, 0.1, *req.Preferences.DistanceWeight, 1e-9)
}

func TestNewQueryRecord(t *testing.T) {
	req := planner.Request{
		Start:       geo.Coordinate{Lat: 40.0, Lon: -74.0},
		End:         geo.Coordinate{Lat: 40.05, Lon: -74.02},
		Preferences: scorer.Preferences{PreferWellLit: true},
	}
	plan := testPlan()

	rec := newQueryRecord(req, plan)

	assert.Equal(t, 40.0, rec.StartLat)
	assert.Equal(t, -74.02, rec.EndLon)
	assert.Equal(t, 1, rec.RouteCount)
	assert.JSONEq(t, `{"prefer_well_lit":true}`, rec.Preferences)
	assert.InDelta(t, 0.91, rec.BestComposite, 1e-9)
	assert.InDelta(t, 85.0, rec.BestSafety, 1e-9)
	assert.NotEmpty(t, rec.BestFingerprint)
}

func TestNewQueryRecord_EmptyPlan(t *testing.T) {
	rec := newQueryRecord(planner.Request{}, &planner.Plan{})

	assert.Zero(t, rec.RouteCount)
	assert.Zero(t, rec.BestComposite)
	assert.Empty(t, rec.BestFingerprint)
}

func TestBuildRequest_BadCoordinate(t *testing.T) {
	resetRouteFlags()
	routeFlags.from = "not-a-coordinate"
	routeFlags.to = "40.1,-74.1"

	_, err := buildRequest()
	assert.Error(t, err)
}

func TestBuildRequest_BadVia(t *testing.T) {
	resetRouteFlags()
	routeFlags.from = "40.0,-74.0"
	routeFlags.to = "40.1,-74.1"
	routeFlags.via = "40.05"

	_, err := buildRequest()
	assert.Error(t, err)
}
