package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/urbansafe/saferoute-cli/internal/dataset"
	"github.com/urbansafe/saferoute-cli/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS crime_records (
	id          BIGSERIAL PRIMARY KEY,
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	category    TEXT,
	reported_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS lighting_records (
	id             BIGSERIAL PRIMARY KEY,
	latitude       DOUBLE PRECISION NOT NULL,
	longitude      DOUBLE PRECISION NOT NULL,
	lighting_score DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS population_records (
	id                 BIGSERIAL PRIMARY KEY,
	latitude           DOUBLE PRECISION NOT NULL,
	longitude          DOUBLE PRECISION NOT NULL,
	population_density DOUBLE PRECISION NOT NULL,
	traffic_level      DOUBLE PRECISION NOT NULL,
	is_main_road       BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS route_queries (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	start_lat        DOUBLE PRECISION NOT NULL,
	start_lon        DOUBLE PRECISION NOT NULL,
	end_lat          DOUBLE PRECISION NOT NULL,
	end_lon          DOUBLE PRECISION NOT NULL,
	preferences      TEXT,
	route_count      INTEGER NOT NULL,
	best_fingerprint TEXT,
	best_safety      DOUBLE PRECISION NOT NULL DEFAULT 0,
	best_composite   DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_crime_lat_lon ON crime_records(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_lighting_lat_lon ON lighting_records(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_population_lat_lon ON population_records(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_route_queries_created_at ON route_queries(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// replaceRows clears a table and refills it via COPY inside one
// transaction, so readers never observe a half-imported dataset.
func (s *PostgresStore) replaceRows(ctx context.Context, table string, columns []string, rows [][]any) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrapf(err, "postgres: begin replace %s", table)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return eris.Wrapf(err, "postgres: clear %s", table)
	}
	if _, err := db.CopyFrom(ctx, tx, table, columns, rows); err != nil {
		return eris.Wrapf(err, "postgres: replace %s", table)
	}
	return eris.Wrapf(tx.Commit(ctx), "postgres: commit replace %s", table)
}

func (s *PostgresStore) ReplaceCrime(ctx context.Context, records []dataset.CrimeRecord) error {
	rows := make([][]any, len(records))
	for i, r := range records {
		var reportedAt any
		if !r.ReportedAt.IsZero() {
			reportedAt = r.ReportedAt.UTC()
		}
		rows[i] = []any{r.Lat, r.Lon, r.Category, reportedAt}
	}
	return s.replaceRows(ctx, "crime_records",
		[]string{"latitude", "longitude", "category", "reported_at"}, rows)
}

func (s *PostgresStore) ReplaceLighting(ctx context.Context, records []dataset.LightingRecord) error {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Lat, r.Lon, r.LightingScore}
	}
	return s.replaceRows(ctx, "lighting_records",
		[]string{"latitude", "longitude", "lighting_score"}, rows)
}

func (s *PostgresStore) ReplacePopulation(ctx context.Context, records []dataset.PopulationRecord) error {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Lat, r.Lon, r.PopulationDensity, r.TrafficLevel, r.IsMainRoad}
	}
	return s.replaceRows(ctx, "population_records",
		[]string{"latitude", "longitude", "population_density", "traffic_level", "is_main_road"}, rows)
}

func (s *PostgresStore) LoadCrime(ctx context.Context) ([]dataset.CrimeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT latitude, longitude, COALESCE(category, ''), reported_at FROM crime_records`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load crime")
	}
	defer rows.Close()

	var out []dataset.CrimeRecord
	for rows.Next() {
		var r dataset.CrimeRecord
		var reportedAt *time.Time
		if err := rows.Scan(&r.Lat, &r.Lon, &r.Category, &reportedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan crime record")
		}
		if reportedAt != nil {
			r.ReportedAt = *reportedAt
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: load crime iterate")
}

func (s *PostgresStore) LoadLighting(ctx context.Context) ([]dataset.LightingRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT latitude, longitude, lighting_score FROM lighting_records`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load lighting")
	}
	defer rows.Close()

	var out []dataset.LightingRecord
	for rows.Next() {
		var r dataset.LightingRecord
		if err := rows.Scan(&r.Lat, &r.Lon, &r.LightingScore); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lighting record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: load lighting iterate")
}

func (s *PostgresStore) LoadPopulation(ctx context.Context) ([]dataset.PopulationRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT latitude, longitude, population_density, traffic_level, is_main_road FROM population_records`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load population")
	}
	defer rows.Close()

	var out []dataset.PopulationRecord
	for rows.Next() {
		var r dataset.PopulationRecord
		if err := rows.Scan(&r.Lat, &r.Lon, &r.PopulationDensity, &r.TrafficLevel, &r.IsMainRoad); err != nil {
			return nil, eris.Wrap(err, "postgres: scan population record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: load population iterate")
}

func (s *PostgresStore) CountDatasets(ctx context.Context) (DatasetCounts, error) {
	var c DatasetCounts
	err := s.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM crime_records),
			(SELECT COUNT(*) FROM lighting_records),
			(SELECT COUNT(*) FROM population_records)`,
	).Scan(&c.Crime, &c.Lighting, &c.Population)
	return c, eris.Wrap(err, "postgres: count datasets")
}

func (s *PostgresStore) LogQuery(ctx context.Context, q QueryRecord) (*QueryRecord, error) {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO route_queries (id, start_lat, start_lon, end_lat, end_lon, preferences, route_count, best_fingerprint, best_safety, best_composite, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		q.ID, q.StartLat, q.StartLon, q.EndLat, q.EndLon, q.Preferences,
		q.RouteCount, q.BestFingerprint, q.BestSafety, q.BestComposite, q.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert query record")
	}
	return &q, nil
}

func (s *PostgresStore) ListQueries(ctx context.Context, filter QueryFilter) ([]QueryRecord, error) {
	query := `SELECT id, start_lat, start_lon, end_lat, end_lon, COALESCE(preferences, ''), route_count, COALESCE(best_fingerprint, ''), best_safety, best_composite, created_at
	          FROM route_queries WHERE true`
	args := []any{}
	argIdx := 1

	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: list queries")
	}
	defer rows.Close()

	var out []QueryRecord
	for rows.Next() {
		var q QueryRecord
		if err := rows.Scan(&q.ID, &q.StartLat, &q.StartLon, &q.EndLat, &q.EndLon, &q.Preferences,
			&q.RouteCount, &q.BestFingerprint, &q.BestSafety, &q.BestComposite, &q.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan query record")
		}
		out = append(out, q)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list queries iterate")
}
