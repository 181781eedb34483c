package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbansafe/saferoute-cli/internal/planner"
	"github.com/urbansafe/saferoute-cli/internal/route"
	"github.com/urbansafe/saferoute-cli/internal/scorer"
	"github.com/urbansafe/saferoute-cli/internal/store"
)

type stubPlanner struct {
	plan *planner.Plan
	err  error
}

func (s *stubPlanner) Plan(context.Context, planner.Request) (*planner.Plan, error) {
	return s.plan, s.err
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testPlan() *planner.Plan {
	return &planner.Plan{Routes: []planner.RankedRoute{{
		Candidate: route.Candidate{
			Geometry: route.Geometry{
				{Lat: 40.0, Lon: -74.0},
				{Lat: 40.01, Lon: -74.0},
			},
			DistanceKM:  2.2,
			DurationMin: 8,
		},
		SafetyMetrics: &scorer.SafetyMetrics{SafetyScore: 85},
		Composite:     0.91,
		Rank:          1,
		IsRecommended: true,
		Category:      "Safest",
	}}}
}

func TestServe_Health(t *testing.T) {
	h := newRouter(&stubPlanner{}, newTestStore(t), []string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServe_PlanRoutes(t *testing.T) {
	st := newTestStore(t)
	h := newRouter(&stubPlanner{plan: testPlan()}, st, []string{"*"})

	body := `{"start":{"lat":40.0,"lon":-74.0},"end":{"lat":40.01,"lon":-74.0},"preferences":{"prefer_well_lit":true}}`
	req := httptest.NewRequest(http.MethodPost, "/api/routes", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rank":1`)
	assert.Contains(t, rec.Body.String(), `"is_recommended":true`)
	assert.Contains(t, rec.Body.String(), `"safety_score":85`)

	// The request lands in the query log with the plan summary.
	queries, err := st.ListQueries(context.Background(), store.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, 1, queries[0].RouteCount)
	assert.InDelta(t, 85.0, queries[0].BestSafety, 1e-9)
	assert.InDelta(t, 0.91, queries[0].BestComposite, 1e-9)
	assert.JSONEq(t, `{"prefer_well_lit":true}`, queries[0].Preferences)
	assert.NotEmpty(t, queries[0].BestFingerprint)
}

func TestServe_PlanRoutesBadBody(t *testing.T) {
	h := newRouter(&stubPlanner{plan: testPlan()}, newTestStore(t), []string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/api/routes", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestServe_PlanRoutesMissingCoordinates(t *testing.T) {
	h := newRouter(&stubPlanner{plan: testPlan()}, newTestStore(t), []string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/api/routes",
		strings.NewReader(`{"start":{"lat":200,"lon":0},"end":{"lat":40,"lon":-74}}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "coordinates are required")
}

func TestServe_PlanRoutesProviderFailure(t *testing.T) {
	h := newRouter(&stubPlanner{err: errors.New("provider down")}, newTestStore(t), []string{"*"})

	body := `{"start":{"lat":40.0,"lon":-74.0},"end":{"lat":40.01,"lon":-74.0}}`
	req := httptest.NewRequest(http.MethodPost, "/api/routes", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "no routes available")
}

func TestServe_DatasetStatus(t *testing.T) {
	st := newTestStore(t)
	h := newRouter(&stubPlanner{}, st, []string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"crime":0,"lighting":0,"population":0}`, rec.Body.String())
}

func TestServe_ListQueriesEmpty(t *testing.T) {
	h := newRouter(&stubPlanner{}, newTestStore(t), []string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/api/queries", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServe_ListQueriesBadLimit(t *testing.T) {
	h := newRouter(&stubPlanner{}, newTestStore(t), []string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/api/queries?limit=zero", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "limit must be a positive integer")
}

func TestServe_CORSPreflight(t *testing.T) {
	h := newRouter(&stubPlanner{}, newTestStore(t), []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/api/routes", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServe_PlanValidatesCoordinatePair(t *testing.T) {
	// Zero-value end coordinate counts as missing.
	h := newRouter(&stubPlanner{plan: testPlan()}, newTestStore(t), []string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/api/routes",
		strings.NewReader(`{"start":{"lat":40.0,"lon":-74.0}}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
