package dataset

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Required position columns shared by every dataset, matched
// case-insensitively against the source header.
const (
	colLatitude  = "latitude"
	colLongitude = "longitude"
)

// Dataset-specific value columns.
const (
	colCategory          = "category"
	colReportedAt        = "reported_at"
	colLightingScore     = "lighting_score"
	colPopulationDensity = "population_density"
	colTrafficLevel      = "traffic_level"
	colIsMainRoad        = "is_main_road"
)

// LoadCrimeCSV reads crime incidents from a CSV file with a header row.
func LoadCrimeCSV(path string) ([]CrimeRecord, error) {
	header, rows, err := readCSVRows(path)
	if err != nil {
		return nil, err
	}
	return parseCrimeRows(path, header, rows)
}

// LoadLightingCSV reads lighting samples from a CSV file with a header row.
func LoadLightingCSV(path string) ([]LightingRecord, error) {
	header, rows, err := readCSVRows(path)
	if err != nil {
		return nil, err
	}
	return parseLightingRows(path, header, rows)
}

// LoadPopulationCSV reads population/traffic cells from a CSV file with a
// header row.
func LoadPopulationCSV(path string) ([]PopulationRecord, error) {
	header, rows, err := readCSVRows(path)
	if err != nil {
		return nil, err
	}
	return parsePopulationRows(path, header, rows)
}

func readCSVRows(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: open csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: read csv %s", path)
	}
	if len(all) == 0 {
		return nil, nil, eris.Errorf("dataset: csv %s is empty", path)
	}
	return all[0], all[1:], nil
}

// columnIndex maps lowercased, trimmed header names to their position.
type columnIndex map[string]int

func indexColumns(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

// require returns the positions of the given columns, or an error naming the
// first one missing.
func (c columnIndex) require(source string, names ...string) ([]int, error) {
	out := make([]int, 0, len(names))
	for _, name := range names {
		i, ok := c[name]
		if !ok {
			return nil, eris.Errorf("dataset: %s is missing required column %q", source, name)
		}
		out = append(out, i)
	}
	return out, nil
}

func (c columnIndex) optional(name string) (int, bool) {
	i, ok := c[name]
	return i, ok
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseCrimeRows(source string, header []string, rows [][]string) ([]CrimeRecord, error) {
	idx := indexColumns(header)
	pos, err := idx.require(source, colLatitude, colLongitude)
	if err != nil {
		return nil, err
	}
	catIdx, hasCat := idx.optional(colCategory)
	atIdx, hasAt := idx.optional(colReportedAt)

	records := make([]CrimeRecord, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		lat, latErr := strconv.ParseFloat(cell(row, pos[0]), 64)
		lon, lonErr := strconv.ParseFloat(cell(row, pos[1]), 64)
		if latErr != nil || lonErr != nil {
			skipped++
			continue
		}
		rec := CrimeRecord{Lat: lat, Lon: lon}
		if hasCat {
			rec.Category = cell(row, catIdx)
		}
		if hasAt {
			if ts, err := time.Parse(time.RFC3339, cell(row, atIdx)); err == nil {
				rec.ReportedAt = ts
			}
		}
		records = append(records, rec)
	}
	logSkipped(source, "crime", skipped)
	return records, nil
}

func parseLightingRows(source string, header []string, rows [][]string) ([]LightingRecord, error) {
	idx := indexColumns(header)
	pos, err := idx.require(source, colLatitude, colLongitude, colLightingScore)
	if err != nil {
		return nil, err
	}

	records := make([]LightingRecord, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		lat, latErr := strconv.ParseFloat(cell(row, pos[0]), 64)
		lon, lonErr := strconv.ParseFloat(cell(row, pos[1]), 64)
		score, scoreErr := strconv.ParseFloat(cell(row, pos[2]), 64)
		if latErr != nil || lonErr != nil || scoreErr != nil {
			skipped++
			continue
		}
		records = append(records, LightingRecord{Lat: lat, Lon: lon, LightingScore: score})
	}
	logSkipped(source, "lighting", skipped)
	return records, nil
}

func parsePopulationRows(source string, header []string, rows [][]string) ([]PopulationRecord, error) {
	idx := indexColumns(header)
	pos, err := idx.require(source,
		colLatitude, colLongitude, colPopulationDensity, colTrafficLevel, colIsMainRoad)
	if err != nil {
		return nil, err
	}

	records := make([]PopulationRecord, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		lat, latErr := strconv.ParseFloat(cell(row, pos[0]), 64)
		lon, lonErr := strconv.ParseFloat(cell(row, pos[1]), 64)
		density, densityErr := strconv.ParseFloat(cell(row, pos[2]), 64)
		traffic, trafficErr := strconv.ParseFloat(cell(row, pos[3]), 64)
		if latErr != nil || lonErr != nil || densityErr != nil || trafficErr != nil {
			skipped++
			continue
		}
		records = append(records, PopulationRecord{
			Lat:               lat,
			Lon:               lon,
			PopulationDensity: density,
			TrafficLevel:      traffic,
			IsMainRoad:        parseBool(cell(row, pos[4])),
		})
	}
	logSkipped(source, "population", skipped)
	return records, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "t", "true", "y", "yes":
		return true
	}
	return false
}

func logSkipped(source, kind string, skipped int) {
	if skipped > 0 {
		zap.L().Debug("dataset: skipped unparseable rows",
			zap.String("source", source),
			zap.String("kind", kind),
			zap.Int("skipped", skipped),
		)
	}
}
