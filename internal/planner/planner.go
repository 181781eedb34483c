// Package planner runs the full safe-route pipeline: fetch candidates from
// the routing provider, deduplicate, score each survivor, and rank by
// composite score.
package planner

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/urbansafe/saferoute-cli/internal/geo"
	"github.com/urbansafe/saferoute-cli/internal/ranker"
	"github.com/urbansafe/saferoute-cli/internal/route"
	"github.com/urbansafe/saferoute-cli/internal/scorer"
)

// Provider is the routing-service boundary. Implemented by osrm.Client.
type Provider interface {
	FetchRoutes(ctx context.Context, start, end geo.Coordinate, via *geo.Coordinate) ([]route.Candidate, error)
}

// Request is the inbound shape consumed from the service layer.
type Request struct {
	Start       geo.Coordinate     `json:"start"`
	End         geo.Coordinate     `json:"end"`
	Via         *geo.Coordinate    `json:"waypoint,omitempty"`
	Preferences scorer.Preferences `json:"preferences"`
}

// RankedRoute is one candidate with its safety metrics, composite score,
// and presentation attributes, ordered best-first in a Plan.
type RankedRoute struct {
	route.Candidate
	*scorer.SafetyMetrics

	Composite       float64  `json:"composite_score"`
	Rank            int      `json:"rank"`
	IsRecommended   bool     `json:"is_recommended"`
	Category        string   `json:"category"`
	Description     string   `json:"description"`
	Reasons         []string `json:"reasons,omitempty"`
	Warning         string   `json:"warning,omitempty"`
	DistanceDisplay string   `json:"distance_display"`
	DurationDisplay string   `json:"duration_display"`
	SafetyDisplay   string   `json:"safety_display"`
}

// Plan is the ranked outcome of one routing request.
type Plan struct {
	Routes []RankedRoute `json:"routes"`
}

// Best returns the top-ranked route, or nil for an empty plan.
func (p *Plan) Best() *RankedRoute {
	if p == nil || len(p.Routes) == 0 {
		return nil
	}
	return &p.Routes[0]
}

// Config tunes pipeline behavior.
type Config struct {
	// ExploreDetours also fetches candidates through waypoints offset
	// perpendicular to the route midpoint, to diversify beyond the
	// provider's own alternatives. Duplicates collapse in dedup.
	ExploreDetours bool    `yaml:"explore_detours" mapstructure:"explore_detours"`
	DetourOffsetKM float64 `yaml:"detour_offset_km" mapstructure:"detour_offset_km"`
	// MaxConcurrentScores bounds concurrent candidate scoring.
	MaxConcurrentScores int `yaml:"max_concurrent_scores" mapstructure:"max_concurrent_scores"`
}

// DefaultConfig returns the production pipeline settings.
func DefaultConfig() Config {
	return Config{
		ExploreDetours:      true,
		DetourOffsetKM:      0.8,
		MaxConcurrentScores: 4,
	}
}

// Planner wires the provider, scorer, and ranker into one pipeline.
type Planner struct {
	provider Provider
	scorer   *scorer.Scorer
	ranker   *ranker.Ranker
	cfg      Config
}

// New builds a Planner.
func New(provider Provider, s *scorer.Scorer, r *ranker.Ranker, cfg Config) *Planner {
	if cfg.MaxConcurrentScores <= 0 {
		cfg.MaxConcurrentScores = DefaultConfig().MaxConcurrentScores
	}
	return &Planner{provider: provider, scorer: s, ranker: r, cfg: cfg}
}

// Plan executes fetch, dedupe, score, rank. A provider failure on the
// primary fetch is returned as an error; detour fetches are best-effort
// extras and their failures are only logged.
func (p *Planner) Plan(ctx context.Context, req Request) (*Plan, error) {
	log := zap.L().With(
		zap.Float64("start_lat", req.Start.Lat),
		zap.Float64("start_lon", req.Start.Lon),
		zap.Float64("end_lat", req.End.Lat),
		zap.Float64("end_lon", req.End.Lon),
	)

	candidates, err := p.provider.FetchRoutes(ctx, req.Start, req.End, req.Via)
	if err != nil {
		return nil, eris.Wrap(err, "planner: fetch routes")
	}

	if p.cfg.ExploreDetours {
		for _, via := range detourWaypoints(req.Start, req.End, p.cfg.DetourOffsetKM) {
			extra, err := p.provider.FetchRoutes(ctx, req.Start, req.End, &via)
			if err != nil {
				log.Debug("planner: detour fetch failed", zap.Error(err))
				continue
			}
			candidates = append(candidates, extra...)
		}
	}

	candidates = route.Dedupe(candidates)
	if len(candidates) == 0 {
		return nil, eris.New("planner: no routes available")
	}

	// Per-candidate scoring shares no mutable state, so it parallelizes
	// freely; order is restored by the sort below.
	ranked := make([]RankedRoute, len(candidates))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrentScores)
	for i, c := range candidates {
		g.Go(func() error {
			m := p.scorer.Score(c.Geometry, req.Preferences)
			ranked[i] = RankedRoute{
				Candidate:     c,
				SafetyMetrics: m,
				Composite:     p.ranker.Composite(c.DistanceKM, m, req.Preferences),
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Composite > ranked[j].Composite
	})
	annotate(ranked)

	log.Info("planner: plan complete",
		zap.Int("candidates", len(ranked)),
		zap.Float64("best_composite", ranked[0].Composite),
	)
	return &Plan{Routes: ranked}, nil
}

// detourWaypoints returns two waypoints offset perpendicular to the
// start-end midpoint, one on each side. Degenerate requests (identical
// endpoints) produce none.
func detourWaypoints(start, end geo.Coordinate, offsetKM float64) []geo.Coordinate {
	if offsetKM <= 0 {
		return nil
	}

	mid := geo.Coordinate{Lat: (start.Lat + end.Lat) / 2, Lon: (start.Lon + end.Lon) / 2}
	cosLat := math.Cos(mid.Lat * math.Pi / 180)

	// Direction of travel in local-km space.
	dx := (end.Lon - start.Lon) * cosLat
	dy := end.Lat - start.Lat
	norm := math.Hypot(dx, dy)
	if norm == 0 || cosLat == 0 {
		return nil
	}

	// Perpendicular unit vector, scaled back to degrees.
	offsetDeg := offsetKM / 111.0
	perpLat := (dx / norm) * offsetDeg
	perpLon := (-dy / norm) * offsetDeg / cosLat

	return []geo.Coordinate{
		{Lat: mid.Lat + perpLat, Lon: mid.Lon + perpLon},
		{Lat: mid.Lat - perpLat, Lon: mid.Lon - perpLon},
	}
}

// Presentation thresholds.
const (
	cautionSafety   = 40.0
	warningMaxCrime = 5.0
	goodLighting    = 7.0
	goodPopulation  = 7.0
	mostlyMainRoads = 50.0
	lowCrimeDensity = 1.0
)

// annotate fills ranks and human-facing labels on an already sorted slice.
func annotate(ranked []RankedRoute) {
	safestIdx, fastestIdx := 0, 0
	for i, r := range ranked {
		if r.SafetyMetrics != nil &&
			(ranked[safestIdx].SafetyMetrics == nil ||
				r.SafetyScore > ranked[safestIdx].SafetyScore) {
			safestIdx = i
		}
		if r.DurationMin < ranked[fastestIdx].DurationMin {
			fastestIdx = i
		}
	}

	for i := range ranked {
		r := &ranked[i]
		r.Rank = i + 1
		r.IsRecommended = i == 0
		r.DistanceDisplay = fmt.Sprintf("%.1f km", r.DistanceKM)
		r.DurationDisplay = fmt.Sprintf("%.0f min", r.DurationMin)

		if r.SafetyMetrics == nil {
			r.Category = "Unknown"
			r.Description = "Safety data unavailable for this route"
			r.SafetyDisplay = "--/100"
			continue
		}
		r.SafetyDisplay = fmt.Sprintf("%.0f/100", r.SafetyScore)

		switch {
		case r.SafetyScore < cautionSafety:
			r.Category = "Caution"
			r.Description = "Elevated risk along parts of this route"
		case i == safestIdx:
			r.Category = "Safest"
			r.Description = "Highest safety score among the alternatives"
		case i == fastestIdx:
			r.Category = "Fastest"
			r.Description = "Shortest travel time among the alternatives"
		default:
			r.Category = "Balanced"
			r.Description = "Reasonable trade-off between safety and speed"
		}

		r.Reasons = reasons(r.SafetyMetrics)
		if r.MaxCrimeExposure > warningMaxCrime {
			r.Warning = "Passes near a concentration of reported incidents"
		}
	}
}

func reasons(m *scorer.SafetyMetrics) []string {
	var out []string
	if m.CrimeDensity < lowCrimeDensity {
		out = append(out, "low reported crime")
	}
	if m.LightingScore >= goodLighting {
		out = append(out, "well-lit streets")
	}
	if m.PopulationScore >= goodPopulation {
		out = append(out, "busy, populated areas")
	}
	if m.MainRoadPercentage >= mostlyMainRoads {
		out = append(out, "mostly main roads")
	}
	return out
}
