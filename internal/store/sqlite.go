package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/landgeo/internal/geo"
	"github.com/sells-group/landgeo/internal/land"
	"github.com/sells-group/landgeo/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// Connection pragmas. database/sql pools connections, so these ride on the
// DSN and the driver applies them to every new connection.
var sqlitePragmas = []struct{ name, value string }{
	{"journal_mode", "WAL"},
	{"busy_timeout", "5000"},
	{"synchronous", "NORMAL"},
	{"foreign_keys", "1"},
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(dsn))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}
	return &SQLiteStore{db: db}, nil
}

// sqliteDSN appends the connection pragmas to dsn, leaving any pragma the
// caller already set alone.
func sqliteDSN(dsn string) string {
	var b strings.Builder
	b.WriteString(dsn)
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range sqlitePragmas {
		if strings.Contains(dsn, "_pragma="+p.name+"(") {
			continue
		}
		b.WriteString(sep + "_pragma=" + p.name + "(" + p.value + ")")
		sep = "&"
	}
	return b.String()
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS farmers (
	farmer_id     INTEGER PRIMARY KEY,
	farmer_name   TEXT NOT NULL DEFAULT '',
	mobile_number TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS suitability_types (
	suitability_id INTEGER PRIMARY KEY,
	name           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS lands (
	land_id        INTEGER PRIMARY KEY AUTOINCREMENT,
	land_code      TEXT NOT NULL UNIQUE,
	farmer_id      INTEGER NOT NULL,
	area_in_acre   REAL NOT NULL,
	ownership_type TEXT NOT NULL,
	land_name      TEXT NOT NULL,
	image          TEXT NOT NULL DEFAULT '',
	boundary       BLOB,
	min_lng        REAL,
	min_lat        REAL,
	max_lng        REAL,
	max_lat        REAL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_lands_farmer_id ON lands(farmer_id);

CREATE TABLE IF NOT EXISTS land_coordinate_points (
	land_id         INTEGER NOT NULL REFERENCES lands(land_id) ON DELETE CASCADE,
	seq             INTEGER NOT NULL,
	coordinate_type TEXT NOT NULL,
	latitude        REAL NOT NULL,
	longitude       REAL NOT NULL,
	PRIMARY KEY (land_id, seq)
);

CREATE TABLE IF NOT EXISTS land_reference_points (
	land_id    INTEGER NOT NULL REFERENCES lands(land_id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	point_type TEXT NOT NULL,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL,
	PRIMARY KEY (land_id, seq)
);

CREATE TABLE IF NOT EXISTS land_measurement_info (
	land_id       INTEGER PRIMARY KEY REFERENCES lands(land_id) ON DELETE CASCADE,
	n_corner_dist REAL,
	e_corner_dist REAL,
	n_mark_dist   REAL,
	e_mark_dist   REAL,
	ne_nw         REAL,
	nw_sw         REAL,
	se_ne         REAL,
	sw_se         REAL
);

CREATE TABLE IF NOT EXISTS land_suitability_details (
	land_id        INTEGER NOT NULL REFERENCES lands(land_id) ON DELETE CASCADE,
	seq            INTEGER NOT NULL,
	suitability_id INTEGER NOT NULL,
	remarks        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (land_id, seq)
);
`

// Migrate creates the land schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateLand writes the land row and its child rows in one transaction,
// retrying while another writer holds the database lock.
func (s *SQLiteStore) CreateLand(ctx context.Context, sub land.LandSubmission) (int64, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("sqlite", "create land")
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (int64, error) {
		return s.createLand(ctx, sub)
	})
}

func (s *SQLiteStore) createLand(ctx context.Context, sub land.LandSubmission) (int64, error) {
	boundary, err := boundaryEWKB(sub)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: encode boundary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin create land")
	}
	defer tx.Rollback() //nolint:errcheck

	args := []any{sub.LandCode, farmerIDOf(sub), areaOf(sub), sub.OwnershipType, sub.LandName, sub.Image, boundary}
	args = append(args, envelopeArgs(geo.BoundsOf(boundaryPoints(sub)))...)
	args = append(args, time.Now().UTC())

	res, err := tx.ExecContext(ctx,
		`INSERT INTO lands (land_code, farmer_id, area_in_acre, ownership_type, land_name, image, boundary,
		                    min_lng, min_lat, max_lng, max_lat, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert land")
	}
	landID, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: land id")
	}

	if !sub.MeasurementInfo.IsZero() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO land_measurement_info (land_id, n_corner_dist, e_corner_dist, n_mark_dist, e_mark_dist, ne_nw, nw_sw, se_ne, sw_se)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			measurementArgs(landID, sub.MeasurementInfo)...,
		); err != nil {
			return 0, eris.Wrap(err, "sqlite: insert measurement info")
		}
	}

	if err := insertRows(ctx, tx, "land_coordinate_points", coordinateColumns, coordinateRows(landID, sub.CoordinatePoints)); err != nil {
		return 0, err
	}
	if err := insertRows(ctx, tx, "land_reference_points", referenceColumns, referenceRows(landID, sub.ReferencePoints)); err != nil {
		return 0, err
	}
	if err := insertRows(ctx, tx, "land_suitability_details", suitabilityColumns, suitabilityRows(landID, sub.SuitabilityDetails)); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit create land")
	}
	return landID, nil
}

// insertRows is the SQLite stand-in for COPY: one prepared INSERT per table.
func insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO "+table+" ("+strings.Join(columns, ", ")+") VALUES ("+placeholders+")")
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert %s", table)
		}
	}
	return nil
}

// GetLand loads a land and its child rows. Returns nil, nil when absent.
func (s *SQLiteStore) GetLand(ctx context.Context, landID int64) (*land.LandRecord, error) {
	rec := land.LandRecord{LandID: landID}
	err := s.db.QueryRowContext(ctx,
		`SELECT l.land_name, l.farmer_id, COALESCE(f.farmer_name, ''), COALESCE(f.mobile_number, ''),
		        l.area_in_acre, l.ownership_type, l.image
		 FROM lands l LEFT JOIN farmers f ON f.farmer_id = l.farmer_id
		 WHERE l.land_id = ?`, landID,
	).Scan(&rec.LandName, &rec.FarmerID, &rec.FarmerName, &rec.MobileNumber,
		&rec.AreaInAcre, &rec.OwnershipType, &rec.Image)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get land")
	}

	if rec.CoordinatePoints, err = s.points(ctx,
		`SELECT coordinate_type, latitude, longitude FROM land_coordinate_points WHERE land_id = ? ORDER BY seq`,
		landID, rawCoordinate); err != nil {
		return nil, eris.Wrap(err, "sqlite: get coordinate points")
	}
	if rec.ReferencePoints, err = s.points(ctx,
		`SELECT point_type, latitude, longitude FROM land_reference_points WHERE land_id = ? ORDER BY seq`,
		landID, rawReference); err != nil {
		return nil, eris.Wrap(err, "sqlite: get reference points")
	}

	var m geo.MeasurementInfo
	err = s.db.QueryRowContext(ctx,
		`SELECT n_corner_dist, e_corner_dist, n_mark_dist, e_mark_dist, ne_nw, nw_sw, se_ne, sw_se
		 FROM land_measurement_info WHERE land_id = ?`, landID,
	).Scan(&m.NCornerDist, &m.ECornerDist, &m.NMarkDist, &m.EMarkDist, &m.NeNw, &m.NwSw, &m.SeNe, &m.SwSe)
	switch {
	case err == nil:
		rec.MeasurementInfo = []geo.MeasurementInfo{m}
	case err == sql.ErrNoRows:
	default:
		return nil, eris.Wrap(err, "sqlite: get measurement info")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT d.suitability_id, COALESCE(t.name, ''), d.remarks
		 FROM land_suitability_details d LEFT JOIN suitability_types t ON t.suitability_id = d.suitability_id
		 WHERE d.land_id = ? ORDER BY d.seq`, landID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get suitability details")
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var d land.SuitabilityRecord
		if err := rows.Scan(&d.LandSuitabilityID, &d.LandSuitabilityName, &d.Remarks); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan suitability detail")
		}
		rec.SuitabilityDetails = append(rec.SuitabilityDetails, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate suitability details")
	}

	return &rec, nil
}

func (s *SQLiteStore) points(ctx context.Context, query string, landID int64, mk func(string, float64, float64) geo.RawPoint) ([]geo.RawPoint, error) {
	rows, err := s.db.QueryContext(ctx, query, landID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

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
func (s *SQLiteStore) ListLands(ctx context.Context, filter LandFilter) ([]LandSummary, error) {
	query := `SELECT land_id, land_code, land_name, farmer_id, area_in_acre, ownership_type, created_at FROM lands WHERE 1=1`
	var args []any

	if filter.FarmerID != nil {
		query += ` AND farmer_id = ?`
		args = append(args, *filter.FarmerID)
	}
	if b := filter.BBox; b != nil {
		query += ` AND max_lng >= ? AND min_lng <= ? AND max_lat >= ? AND min_lat <= ?`
		args = append(args, b.MinLng, b.MaxLng, b.MinLat, b.MaxLat)
	}
	query += ` ORDER BY land_id DESC LIMIT ? OFFSET ?`
	args = append(args, filter.limit(), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list lands")
	}
	defer rows.Close() //nolint:errcheck

	var out []LandSummary
	for rows.Next() {
		var l LandSummary
		if err := rows.Scan(&l.LandID, &l.LandCode, &l.LandName, &l.FarmerID, &l.AreaInAcre, &l.OwnershipType, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan land summary")
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list lands iterate")
}
