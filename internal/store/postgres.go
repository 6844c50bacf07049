package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/landgeo/internal/db"
	"github.com/sells-group/landgeo/internal/geo"
	"github.com/sells-group/landgeo/internal/land"
	"github.com/sells-group/landgeo/internal/resilience"
)

// PostgresStore implements Store using pgxpool and PostGIS.
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
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 5
	retry.OnRetry = resilience.RetryLogger("postgres", "ping")
	if err := resilience.Do(ctx, retry, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS farmers (
	farmer_id     BIGINT PRIMARY KEY,
	farmer_name   TEXT NOT NULL DEFAULT '',
	mobile_number TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS suitability_types (
	suitability_id BIGINT PRIMARY KEY,
	name           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS lands (
	land_id        BIGSERIAL PRIMARY KEY,
	land_code      TEXT NOT NULL UNIQUE,
	farmer_id      BIGINT NOT NULL,
	area_in_acre   DOUBLE PRECISION NOT NULL,
	ownership_type TEXT NOT NULL,
	land_name      TEXT NOT NULL,
	image          TEXT NOT NULL DEFAULT '',
	boundary       geometry(Polygon, 4326),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_lands_farmer_id ON lands(farmer_id);
CREATE INDEX IF NOT EXISTS idx_lands_boundary ON lands USING GIST (boundary);

CREATE TABLE IF NOT EXISTS land_coordinate_points (
	land_id         BIGINT NOT NULL REFERENCES lands(land_id) ON DELETE CASCADE,
	seq             INTEGER NOT NULL,
	coordinate_type TEXT NOT NULL,
	latitude        DOUBLE PRECISION NOT NULL,
	longitude       DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (land_id, seq)
);

CREATE TABLE IF NOT EXISTS land_reference_points (
	land_id    BIGINT NOT NULL REFERENCES lands(land_id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	point_type TEXT NOT NULL,
	latitude   DOUBLE PRECISION NOT NULL,
	longitude  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (land_id, seq)
);

CREATE TABLE IF NOT EXISTS land_measurement_info (
	land_id       BIGINT PRIMARY KEY REFERENCES lands(land_id) ON DELETE CASCADE,
	n_corner_dist DOUBLE PRECISION,
	e_corner_dist DOUBLE PRECISION,
	n_mark_dist   DOUBLE PRECISION,
	e_mark_dist   DOUBLE PRECISION,
	ne_nw         DOUBLE PRECISION,
	nw_sw         DOUBLE PRECISION,
	se_ne         DOUBLE PRECISION,
	sw_se         DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS land_suitability_details (
	land_id        BIGINT NOT NULL REFERENCES lands(land_id) ON DELETE CASCADE,
	seq            INTEGER NOT NULL,
	suitability_id BIGINT NOT NULL,
	remarks        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (land_id, seq)
);
`

// Migrate creates the land schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// CreateLand writes the land row and its child rows in one transaction.
// Serialization failures and deadlocks are retried with a fresh transaction.
func (s *PostgresStore) CreateLand(ctx context.Context, sub land.LandSubmission) (int64, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("postgres", "create land")
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (int64, error) {
		return s.createLand(ctx, sub)
	})
}

func (s *PostgresStore) createLand(ctx context.Context, sub land.LandSubmission) (landID int64, err error) {
	boundary, err := boundaryEWKB(sub)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: encode boundary")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin create land")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	err = tx.QueryRow(ctx,
		`INSERT INTO lands (land_code, farmer_id, area_in_acre, ownership_type, land_name, image, boundary)
		 VALUES ($1, $2, $3, $4, $5, $6, ST_GeomFromEWKB($7)) RETURNING land_id`,
		sub.LandCode, farmerIDOf(sub), areaOf(sub), sub.OwnershipType, sub.LandName, sub.Image, boundary,
	).Scan(&landID)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert land")
	}

	if !sub.MeasurementInfo.IsZero() {
		_, err = tx.Exec(ctx,
			`INSERT INTO land_measurement_info (land_id, n_corner_dist, e_corner_dist, n_mark_dist, e_mark_dist, ne_nw, nw_sw, se_ne, sw_se)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			measurementArgs(landID, sub.MeasurementInfo)...,
		)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: insert measurement info")
		}
	}

	if _, err = db.CopyFrom(ctx, tx, "land_coordinate_points", coordinateColumns, coordinateRows(landID, sub.CoordinatePoints)); err != nil {
		return 0, err
	}
	if _, err = db.CopyFrom(ctx, tx, "land_reference_points", referenceColumns, referenceRows(landID, sub.ReferencePoints)); err != nil {
		return 0, err
	}
	if _, err = db.CopyFrom(ctx, tx, "land_suitability_details", suitabilityColumns, suitabilityRows(landID, sub.SuitabilityDetails)); err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit create land")
	}
	return landID, nil
}

// GetLand loads a land and its child rows. Returns nil, nil when absent.
func (s *PostgresStore) GetLand(ctx context.Context, landID int64) (*land.LandRecord, error) {
	rec := land.LandRecord{LandID: landID}
	err := s.pool.QueryRow(ctx,
		`SELECT l.land_name, l.farmer_id, COALESCE(f.farmer_name, ''), COALESCE(f.mobile_number, ''),
		        l.area_in_acre, l.ownership_type, l.image
		 FROM lands l LEFT JOIN farmers f ON f.farmer_id = l.farmer_id
		 WHERE l.land_id = $1`, landID,
	).Scan(&rec.LandName, &rec.FarmerID, &rec.FarmerName, &rec.MobileNumber,
		&rec.AreaInAcre, &rec.OwnershipType, &rec.Image)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get land")
	}

	if rec.CoordinatePoints, err = s.points(ctx,
		`SELECT coordinate_type, latitude, longitude FROM land_coordinate_points WHERE land_id = $1 ORDER BY seq`,
		landID, rawCoordinate); err != nil {
		return nil, eris.Wrap(err, "postgres: get coordinate points")
	}
	if rec.ReferencePoints, err = s.points(ctx,
		`SELECT point_type, latitude, longitude FROM land_reference_points WHERE land_id = $1 ORDER BY seq`,
		landID, rawReference); err != nil {
		return nil, eris.Wrap(err, "postgres: get reference points")
	}

	var m geo.MeasurementInfo
	err = s.pool.QueryRow(ctx,
		`SELECT n_corner_dist, e_corner_dist, n_mark_dist, e_mark_dist, ne_nw, nw_sw, se_ne, sw_se
		 FROM land_measurement_info WHERE land_id = $1`, landID,
	).Scan(&m.NCornerDist, &m.ECornerDist, &m.NMarkDist, &m.EMarkDist, &m.NeNw, &m.NwSw, &m.SeNe, &m.SwSe)
	switch {
	case err == nil:
		rec.MeasurementInfo = []geo.MeasurementInfo{m}
	case eris.Is(err, pgx.ErrNoRows):
	default:
		return nil, eris.Wrap(err, "postgres: get measurement info")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT d.suitability_id, COALESCE(t.name, ''), d.remarks
		 FROM land_suitability_details d LEFT JOIN suitability_types t ON t.suitability_id = d.suitability_id
		 WHERE d.land_id = $1 ORDER BY d.seq`, landID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get suitability details")
	}
	defer rows.Close()
	for rows.Next() {
		var d land.SuitabilityRecord
		if err := rows.Scan(&d.LandSuitabilityID, &d.LandSuitabilityName, &d.Remarks); err != nil {
			return nil, eris.Wrap(err, "postgres: scan suitability detail")
		}
		rec.SuitabilityDetails = append(rec.SuitabilityDetails, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate suitability details")
	}

	return &rec, nil
}

func (s *PostgresStore) points(ctx context.Context, query string, landID int64, mk func(string, float64, float64) geo.RawPoint) ([]geo.RawPoint, error) {
	rows, err := s.pool.Query(ctx, query, landID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []geo.RawPoint
	for rows.Next() {
		var t string
		var lat, lng float64
		if err := rows.Scan(&t, &lat, &lng); err != nil {
			return nil, err
		}
		out = append(out, mk(t, lat, lng))
	}
	return out, rows.Err()
}

// ListLands returns land summaries, newest first.
func (s *PostgresStore) ListLands(ctx context.Context, filter LandFilter) ([]LandSummary, error) {
	var where []string
	var args []any
	if filter.FarmerID != nil {
		args = append(args, *filter.FarmerID)
		where = append(where, fmt.Sprintf("farmer_id = $%d", len(args)))
	}
	if b := filter.BBox; b != nil {
		args = append(args, b.MinLng, b.MinLat, b.MaxLng, b.MaxLat)
		n := len(args)
		where = append(where, fmt.Sprintf("boundary && ST_MakeEnvelope($%d, $%d, $%d, $%d, 4326)", n-3, n-2, n-1, n))
	}

	query := `SELECT land_id, land_code, land_name, farmer_id, area_in_acre, ownership_type, created_at FROM lands`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.limit(), filter.Offset)
	query += fmt.Sprintf(" ORDER BY land_id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list lands")
	}
	defer rows.Close()

	var out []LandSummary
	for rows.Next() {
		var l LandSummary
		if err := rows.Scan(&l.LandID, &l.LandCode, &l.LandName, &l.FarmerID, &l.AreaInAcre, &l.OwnershipType, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan land summary")
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate land summaries")
	}
	return out, nil
}
