// Package geo holds the coordinate type and great-circle math shared by the
// routing pipeline.
package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// EarthRadiusKM is the mean spherical earth radius used by Distance.
const EarthRadiusKM = 6371.0

// Coordinate is a (latitude, longitude) pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both components are finite numbers.
func (c Coordinate) Valid() bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) &&
		!math.IsNaN(c.Lon) && !math.IsInf(c.Lon, 0)
}

// InBounds reports whether the coordinate is finite and within the WGS84
// latitude/longitude ranges.
func (c Coordinate) InBounds() bool {
	return c.Valid() &&
		c.Lat >= -90 && c.Lat <= 90 &&
		c.Lon >= -180 && c.Lon <= 180
}

// Distance returns the haversine distance between a and b in kilometers.
// Non-finite inputs yield 0 rather than NaN so downstream filters degrade
// instead of poisoning every comparison.
func Distance(a, b Coordinate) float64 {
	if !a.Valid() || !b.Valid() {
		return 0
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * math.Asin(math.Sqrt(h)) * EarthRadiusKM
}

// ParseCoordinate parses a "lat,lon" string as used by CLI flags.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return Coordinate{}, eris.Errorf("geo: expected lat,lon, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, eris.Wrapf(err, "geo: parse latitude %q", parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, eris.Wrapf(err, "geo: parse longitude %q", parts[1])
	}
	return Coordinate{Lat: lat, Lon: lon}, nil
}
