// Package osrm adapts the external OSRM routing service into the internal
// candidate route format. The provider is treated as best-effort: one
// attempt per fetch, bounded by the client timeout, and a failed fetch is a
// first-class "no routes available" outcome for the caller.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/urbansafe/saferoute-cli/internal/geo"
	"github.com/urbansafe/saferoute-cli/internal/route"
)

// codeOK is the provider's success sentinel.
const codeOK = "Ok"

// maxEndpointDriftKM is how far a returned route's endpoints may sit from
// the requested ones before the candidate is discarded. Guards against
// provider snapping and routing anomalies.
const maxEndpointDriftKM = 0.2

// Config configures the OSRM client.
type Config struct {
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RatePerSec float64       `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst      int           `yaml:"burst" mapstructure:"burst"`
	UserAgent  string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// DefaultConfig returns the public demo server settings. The demo server
// asks for a light request rate, hence the limiter.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "https://router.project-osrm.org",
		Timeout:    10 * time.Second,
		RatePerSec: 1,
		Burst:      2,
		UserAgent:  "saferoute-cli/1.0",
	}
}

// Client fetches driving routes from an OSRM-compatible endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a Client from config, filling zero values from
// DefaultConfig.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RatePerSec == 0 {
		cfg.RatePerSec = def.RatePerSec
	}
	if cfg.Burst == 0 {
		cfg.Burst = def.Burst
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
	}
}

type providerResponse struct {
	Code   string          `json:"code"`
	Routes []providerRoute `json:"routes"`
}

type providerRoute struct {
	Geometry json.RawMessage `json:"geometry"`
	Distance float64         `json:"distance"` // meters
	Duration float64         `json:"duration"` // seconds
	Legs     []providerLeg   `json:"legs"`
}

type providerLeg struct {
	Steps []providerStep `json:"steps"`
}

type providerStep struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Maneuver struct {
		Instruction string `json:"instruction"`
	} `json:"maneuver"`
}

// FetchRoutes requests driving routes from start to end, optionally through
// a single intermediate waypoint, and normalizes each well-formed provider
// entry into a Candidate. Candidates lacking geometry, shorter than two
// points, or with endpoints drifted from the request are dropped silently;
// the caller just sees a shorter list. Provider-level failure (transport,
// status, non-Ok code) is returned as an error: "no routes available" is an
// outcome the caller must handle, not an exception path.
func (c *Client) FetchRoutes(ctx context.Context, start, end geo.Coordinate, via *geo.Coordinate) ([]route.Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "osrm: rate limiter wait")
	}

	reqURL := c.routeURL(start, end, via)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "osrm: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "osrm: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("osrm: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "osrm: read response")
	}

	var parsed providerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "osrm: decode response")
	}
	if parsed.Code != codeOK {
		return nil, eris.Errorf("osrm: provider code %q", parsed.Code)
	}

	candidates := make([]route.Candidate, 0, len(parsed.Routes))
	dropped := 0
	for _, r := range parsed.Routes {
		c, ok := normalizeRoute(r, start, end, via)
		if !ok {
			dropped++
			continue
		}
		candidates = append(candidates, c)
	}

	if dropped > 0 {
		zap.L().Debug("osrm: dropped malformed or drifted candidates",
			zap.Int("dropped", dropped),
			zap.Int("kept", len(candidates)),
		)
	}
	return candidates, nil
}

func (c *Client) routeURL(start, end geo.Coordinate, via *geo.Coordinate) string {
	segs := make([]string, 0, 3)
	segs = append(segs, lonLat(start))
	if via != nil {
		segs = append(segs, lonLat(*via))
	}
	segs = append(segs, lonLat(end))

	q := url.Values{}
	q.Set("overview", "full")
	q.Set("geometries", "geojson")
	q.Set("alternatives", "true")
	q.Set("steps", "true")

	return fmt.Sprintf("%s/route/v1/driving/%s?%s", c.baseURL, strings.Join(segs, ";"), q.Encode())
}

func lonLat(c geo.Coordinate) string {
	return strconv.FormatFloat(c.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}

// normalizeRoute converts one provider entry, returning ok=false when the
// entry should be discarded.
func normalizeRoute(r providerRoute, start, end geo.Coordinate, via *geo.Coordinate) (route.Candidate, bool) {
	geometry, ok := decodeGeometry(r.Geometry)
	if !ok || len(geometry) < 2 {
		return route.Candidate{}, false
	}

	if geo.Distance(start, geometry[0]) > maxEndpointDriftKM ||
		geo.Distance(end, geometry[len(geometry)-1]) > maxEndpointDriftKM {
		return route.Candidate{}, false
	}

	return route.Candidate{
		Geometry:    geometry,
		DistanceKM:  r.Distance / 1000,
		DurationMin: r.Duration / 60,
		Waypoint:    via,
		Steps:       flattenSteps(r.Legs),
	}, true
}

// decodeGeometry parses the provider's GeoJSON LineString and flips its
// (lon, lat) coordinate order into the internal (lat, lon) order.
func decodeGeometry(raw json.RawMessage) (route.Geometry, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, false
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, false
	}

	coords := ls.Coords()
	geometry := make(route.Geometry, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			return nil, false
		}
		geometry = append(geometry, geo.Coordinate{Lat: c[1], Lon: c[0]})
	}
	return geometry, true
}

// flattenSteps merges all provider legs into one contiguous 1-based step
// sequence, in traversal order.
func flattenSteps(legs []providerLeg) []route.Step {
	var steps []route.Step
	number := 1
	for _, leg := range legs {
		for _, s := range leg.Steps {
			instruction := s.Maneuver.Instruction
			if instruction == "" {
				instruction = s.Name
			}
			if instruction == "" {
				instruction = "Continue"
			}
			steps = append(steps, route.Step{
				Number:       number,
				Instruction:  instruction,
				DistanceM:    math.Round(s.Distance*10) / 10,
				DistanceText: formatStepDistance(s.Distance),
			})
			number++
		}
	}
	return steps
}

// formatStepDistance renders meters under 1 km, kilometers to one decimal
// otherwise.
func formatStepDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0fm", meters)
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}
