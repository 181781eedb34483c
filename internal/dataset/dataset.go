// Package dataset holds the in-memory risk/amenity tables consumed by the
// spatial lookups, plus the importers that load them from CSV, XLSX, and
// shapefile sources.
package dataset

import (
	"math"
	"time"
)

// indexCellDeg is the grid cell edge used by the spatial index. It matches
// the largest lookup radius so a query never spans more than a 3x3 block
// of cells plus the radius overflow.
const indexCellDeg = 0.005

// CrimeRecord is one historical crime incident. Category and ReportedAt are
// carried through from the source for the store; the lookups only use the
// position (incident presence, not severity).
type CrimeRecord struct {
	Lat        float64   `json:"latitude"`
	Lon        float64   `json:"longitude"`
	Category   string    `json:"category,omitempty"`
	ReportedAt time.Time `json:"reported_at,omitempty"`
}

// LightingRecord is one street-lighting coverage sample.
type LightingRecord struct {
	Lat           float64 `json:"latitude"`
	Lon           float64 `json:"longitude"`
	LightingScore float64 `json:"lighting_score"`
}

// PopulationRecord is one population/traffic density cell.
type PopulationRecord struct {
	Lat               float64 `json:"latitude"`
	Lon               float64 `json:"longitude"`
	PopulationDensity float64 `json:"population_density"`
	TrafficLevel      float64 `json:"traffic_level"`
	IsMainRoad        bool    `json:"is_main_road"`
}

// Locatable is implemented by every dataset record type.
type Locatable interface {
	Coords() (lat, lon float64)
}

// Coords implements Locatable.
func (r CrimeRecord) Coords() (float64, float64) { return r.Lat, r.Lon }

// Coords implements Locatable.
func (r LightingRecord) Coords() (float64, float64) { return r.Lat, r.Lon }

// Coords implements Locatable.
func (r PopulationRecord) Coords() (float64, float64) { return r.Lat, r.Lon }

// Table kinds used throughout the pipeline.
type (
	CrimeTable      = Table[CrimeRecord]
	LightingTable   = Table[LightingRecord]
	PopulationTable = Table[PopulationRecord]
)

type cellKey struct {
	row, col int
}

// Table is a read-only spatial index over one dataset. Records are bucketed
// into uniform grid cells so a box-window query touches only the cells the
// window overlaps instead of scanning the whole dataset. The query contract
// is a box window (independent per-axis threshold), not a circle.
type Table[T Locatable] struct {
	cells map[cellKey][]T
	count int
}

// New builds a Table from records. Records with non-finite coordinates are
// dropped.
func New[T Locatable](records []T) *Table[T] {
	t := &Table[T]{cells: make(map[cellKey][]T)}
	for _, r := range records {
		lat, lon := r.Coords()
		if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
			continue
		}
		k := keyFor(lat, lon)
		t.cells[k] = append(t.cells[k], r)
		t.count++
	}
	return t
}

func keyFor(lat, lon float64) cellKey {
	return cellKey{
		row: int(math.Floor(lat / indexCellDeg)),
		col: int(math.Floor(lon / indexCellDeg)),
	}
}

// Empty reports whether the table holds no records. Nil tables are empty.
func (t *Table[T]) Empty() bool {
	return t == nil || t.count == 0
}

// Len returns the number of indexed records.
func (t *Table[T]) Len() int {
	if t == nil {
		return 0
	}
	return t.count
}

// Within returns all records r with |r.Lat-lat| < radius and
// |r.Lon-lon| < radius. The strict inequality and per-axis (box) semantics
// are part of the lookup contract; callers depend on both.
func (t *Table[T]) Within(lat, lon, radius float64) []T {
	if t.Empty() || radius <= 0 {
		return nil
	}

	lo := keyFor(lat-radius, lon-radius)
	hi := keyFor(lat+radius, lon+radius)

	var out []T
	for row := lo.row; row <= hi.row; row++ {
		for col := lo.col; col <= hi.col; col++ {
			for _, r := range t.cells[cellKey{row: row, col: col}] {
				rlat, rlon := r.Coords()
				if math.Abs(rlat-lat) < radius && math.Abs(rlon-lon) < radius {
					out = append(out, r)
				}
			}
		}
	}
	return out
}
