package dataset

import (
	"strconv"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LoadCrimeShapefile reads crime incidents from a point shapefile. The
// position comes from the shape itself; a "category" attribute is carried
// through when present.
func LoadCrimeShapefile(path string) ([]CrimeRecord, error) {
	points, attrs, err := readPointShapefile(path)
	if err != nil {
		return nil, err
	}

	records := make([]CrimeRecord, 0, len(points))
	for i, p := range points {
		records = append(records, CrimeRecord{
			Lat:      p.Y,
			Lon:      p.X,
			Category: attrs[i][colCategory],
		})
	}
	return records, nil
}

// LoadLightingShapefile reads lighting samples from a point shapefile with a
// lighting_score attribute.
func LoadLightingShapefile(path string) ([]LightingRecord, error) {
	points, attrs, err := readPointShapefile(path)
	if err != nil {
		return nil, err
	}

	records := make([]LightingRecord, 0, len(points))
	skipped := 0
	for i, p := range points {
		score, ok := parseFloatAttr(attrs[i], colLightingScore)
		if !ok {
			skipped++
			continue
		}
		records = append(records, LightingRecord{Lat: p.Y, Lon: p.X, LightingScore: score})
	}
	logSkipped(path, "lighting", skipped)
	return records, nil
}

// LoadPopulationShapefile reads population/traffic cells from a point
// shapefile with population_density, traffic_level, and is_main_road
// attributes.
func LoadPopulationShapefile(path string) ([]PopulationRecord, error) {
	points, attrs, err := readPointShapefile(path)
	if err != nil {
		return nil, err
	}

	records := make([]PopulationRecord, 0, len(points))
	skipped := 0
	for i, p := range points {
		density, okD := parseFloatAttr(attrs[i], colPopulationDensity)
		traffic, okT := parseFloatAttr(attrs[i], colTrafficLevel)
		if !okD || !okT {
			skipped++
			continue
		}
		records = append(records, PopulationRecord{
			Lat:               p.Y,
			Lon:               p.X,
			PopulationDensity: density,
			TrafficLevel:      traffic,
			IsMainRoad:        parseBool(attrs[i][colIsMainRoad]),
		})
	}
	logSkipped(path, "population", skipped)
	return records, nil
}

// readPointShapefile returns every point shape plus its attribute row keyed
// by lowercased field name. Non-point shapes are skipped.
func readPointShapefile(path string) ([]shp.Point, []map[string]string, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	var points []shp.Point
	var attrs []map[string]string
	skipped := 0

	for reader.Next() {
		_, shape := reader.Shape()

		var p shp.Point
		switch s := shape.(type) {
		case *shp.Point:
			p = *s
		case *shp.PointZ:
			p = shp.Point{X: s.X, Y: s.Y}
		case *shp.PointM:
			p = shp.Point{X: s.X, Y: s.Y}
		default:
			skipped++
			continue
		}

		row := make(map[string]string, len(names))
		for i, name := range names {
			row[name] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}

		points = append(points, p)
		attrs = append(attrs, row)
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped non-point shapes",
			zap.String("source", path),
			zap.Int("skipped", skipped),
		)
	}
	return points, attrs, nil
}

func parseFloatAttr(attrs map[string]string, name string) (float64, bool) {
	v, ok := attrs[name]
	if !ok || v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
