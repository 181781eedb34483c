// Package store persists the imported risk datasets and the query log.
// Two backends are provided: SQLite for single-machine use and Postgres
// for shared deployments.
package store

import (
	"context"
	"time"

	"github.com/urbansafe/saferoute-cli/internal/dataset"
)

// DatasetCounts reports how many records each dataset currently holds.
type DatasetCounts struct {
	Crime      int `json:"crime"`
	Lighting   int `json:"lighting"`
	Population int `json:"population"`
}

// QueryRecord is one logged routing query, kept for usage analysis. The
// coordinates identify the request; the rest summarizes the outcome.
type QueryRecord struct {
	ID              string    `json:"id"`
	StartLat        float64   `json:"start_lat"`
	StartLon        float64   `json:"start_lon"`
	EndLat          float64   `json:"end_lat"`
	EndLon          float64   `json:"end_lon"`
	Preferences     string    `json:"preferences,omitempty"`
	RouteCount      int       `json:"route_count"`
	BestFingerprint string    `json:"best_fingerprint,omitempty"`
	BestSafety      float64   `json:"best_safety"`
	BestComposite   float64   `json:"best_composite"`
	CreatedAt       time.Time `json:"created_at"`
}

// QueryFilter specifies criteria for listing logged queries.
type QueryFilter struct {
	Since  time.Time `json:"since,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for datasets and query logs.
// Replace operations swap a dataset wholesale, so re-running an import
// converges on the source file instead of accumulating duplicates.
type Store interface {
	// Datasets
	ReplaceCrime(ctx context.Context, records []dataset.CrimeRecord) error
	ReplaceLighting(ctx context.Context, records []dataset.LightingRecord) error
	ReplacePopulation(ctx context.Context, records []dataset.PopulationRecord) error
	LoadCrime(ctx context.Context) ([]dataset.CrimeRecord, error)
	LoadLighting(ctx context.Context) ([]dataset.LightingRecord, error)
	LoadPopulation(ctx context.Context) ([]dataset.PopulationRecord, error)
	CountDatasets(ctx context.Context) (DatasetCounts, error)

	// Query log
	LogQuery(ctx context.Context, q QueryRecord) (*QueryRecord, error)
	ListQueries(ctx context.Context, filter QueryFilter) ([]QueryRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
