package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/urbansafe/saferoute-cli/internal/dataset"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS crime_records (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	latitude    REAL NOT NULL,
	longitude   REAL NOT NULL,
	category    TEXT,
	reported_at DATETIME
);

CREATE TABLE IF NOT EXISTS lighting_records (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	latitude       REAL NOT NULL,
	longitude      REAL NOT NULL,
	lighting_score REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS population_records (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	latitude           REAL NOT NULL,
	longitude          REAL NOT NULL,
	population_density REAL NOT NULL,
	traffic_level      REAL NOT NULL,
	is_main_road       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS route_queries (
	id               TEXT PRIMARY KEY,
	start_lat        REAL NOT NULL,
	start_lon        REAL NOT NULL,
	end_lat          REAL NOT NULL,
	end_lon          REAL NOT NULL,
	preferences      TEXT,
	route_count      INTEGER NOT NULL,
	best_fingerprint TEXT,
	best_safety      REAL NOT NULL DEFAULT 0,
	best_composite   REAL NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_crime_lat_lon ON crime_records(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_lighting_lat_lon ON lighting_records(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_population_lat_lon ON population_records(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_route_queries_created_at ON route_queries(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// replaceRows clears a table and refills it inside one transaction, so
// readers never observe a half-imported dataset.
func (s *SQLiteStore) replaceRows(ctx context.Context, table, insertSQL string, rows [][]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: begin replace %s", table)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return eris.Wrapf(err, "sqlite: clear %s", table)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close()

	for _, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "sqlite: insert into %s", table)
		}
	}
	return eris.Wrapf(tx.Commit(), "sqlite: commit replace %s", table)
}

func (s *SQLiteStore) ReplaceCrime(ctx context.Context, records []dataset.CrimeRecord) error {
	rows := make([][]any, len(records))
	for i, r := range records {
		var reportedAt any
		if !r.ReportedAt.IsZero() {
			reportedAt = r.ReportedAt.UTC()
		}
		rows[i] = []any{r.Lat, r.Lon, r.Category, reportedAt}
	}
	return s.replaceRows(ctx, "crime_records",
		`INSERT INTO crime_records (latitude, longitude, category, reported_at) VALUES (?, ?, ?, ?)`,
		rows)
}

func (s *SQLiteStore) ReplaceLighting(ctx context.Context, records []dataset.LightingRecord) error {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Lat, r.Lon, r.LightingScore}
	}
	return s.replaceRows(ctx, "lighting_records",
		`INSERT INTO lighting_records (latitude, longitude, lighting_score) VALUES (?, ?, ?)`,
		rows)
}

func (s *SQLiteStore) ReplacePopulation(ctx context.Context, records []dataset.PopulationRecord) error {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Lat, r.Lon, r.PopulationDensity, r.TrafficLevel, r.IsMainRoad}
	}
	return s.replaceRows(ctx, "population_records",
		`INSERT INTO population_records (latitude, longitude, population_density, traffic_level, is_main_road) VALUES (?, ?, ?, ?, ?)`,
		rows)
}

func (s *SQLiteStore) LoadCrime(ctx context.Context) ([]dataset.CrimeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT latitude, longitude, COALESCE(category, ''), reported_at FROM crime_records`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load crime")
	}
	defer rows.Close()

	var out []dataset.CrimeRecord
	for rows.Next() {
		var r dataset.CrimeRecord
		var reportedAt sql.NullTime
		if err := rows.Scan(&r.Lat, &r.Lon, &r.Category, &reportedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan crime record")
		}
		if reportedAt.Valid {
			r.ReportedAt = reportedAt.Time
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: load crime iterate")
}

func (s *SQLiteStore) LoadLighting(ctx context.Context) ([]dataset.LightingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT latitude, longitude, lighting_score FROM lighting_records`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load lighting")
	}
	defer rows.Close()

	var out []dataset.LightingRecord
	for rows.Next() {
		var r dataset.LightingRecord
		if err := rows.Scan(&r.Lat, &r.Lon, &r.LightingScore); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lighting record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: load lighting iterate")
}

func (s *SQLiteStore) LoadPopulation(ctx context.Context) ([]dataset.PopulationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT latitude, longitude, population_density, traffic_level, is_main_road FROM population_records`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load population")
	}
	defer rows.Close()

	var out []dataset.PopulationRecord
	for rows.Next() {
		var r dataset.PopulationRecord
		if err := rows.Scan(&r.Lat, &r.Lon, &r.PopulationDensity, &r.TrafficLevel, &r.IsMainRoad); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan population record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: load population iterate")
}

func (s *SQLiteStore) CountDatasets(ctx context.Context) (DatasetCounts, error) {
	var c DatasetCounts
	for _, q := range []struct {
		table string
		dst   *int
	}{
		{"crime_records", &c.Crime},
		{"lighting_records", &c.Lighting},
		{"population_records", &c.Population},
	} {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q.table).Scan(q.dst); err != nil {
			return DatasetCounts{}, eris.Wrapf(err, "sqlite: count %s", q.table)
		}
	}
	return c, nil
}

func (s *SQLiteStore) LogQuery(ctx context.Context, q QueryRecord) (*QueryRecord, error) {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO route_queries (id, start_lat, start_lon, end_lat, end_lon, preferences, route_count, best_fingerprint, best_safety, best_composite, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.StartLat, q.StartLon, q.EndLat, q.EndLon, q.Preferences,
		q.RouteCount, q.BestFingerprint, q.BestSafety, q.BestComposite, q.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert query record")
	}
	return &q, nil
}

func (s *SQLiteStore) ListQueries(ctx context.Context, filter QueryFilter) ([]QueryRecord, error) {
	query := `SELECT id, start_lat, start_lon, end_lat, end_lon, COALESCE(preferences, ''), route_count, COALESCE(best_fingerprint, ''), best_safety, best_composite, created_at
	          FROM route_queries WHERE 1=1`
	var args []any

	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list queries")
	}
	defer rows.Close()

	var out []QueryRecord
	for rows.Next() {
		var q QueryRecord
		if err := rows.Scan(&q.ID, &q.StartLat, &q.StartLon, &q.EndLat, &q.EndLon, &q.Preferences,
			&q.RouteCount, &q.BestFingerprint, &q.BestSafety, &q.BestComposite, &q.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan query record")
		}
		out = append(out, q)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list queries iterate")
}
